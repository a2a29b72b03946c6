package planio

import (
	"testing"

	wf "github.com/arrowdb/wfplan"
	"github.com/stretchr/testify/assert"
)

func TestDecodePipeline_MatchProjectSortLimit(t *testing.T) {
	raw := []byte(`[
		{"$match": {"age": {"$gte": 18}}},
		{"$project": {"name": "$name", "age": "$age"}},
		{"$sort": {"age": -1}},
		{"$limit": 10}
	]`)

	op, err := DecodePipeline(wf.NewCollection("people"), raw)

	assert.NoError(t, err)
	assert.NotNil(t, op)

	task, err := wf.Compile(op)
	assert.NoError(t, err)
	assert.Contains(t, wf.TaskCompactJSON(task), "pipeline")
}

func TestDecodePipeline_GroupWithAccumulators(t *testing.T) {
	raw := []byte(`[
		{"$group": {"_id": "$region", "total": {"$sum": "$amount"}, "count": {"$sum": 1}}}
	]`)

	op, err := DecodePipeline(wf.NewCollection("orders"), raw)

	assert.NoError(t, err)
	task, err := wf.Compile(op)
	assert.NoError(t, err)
	out := wf.TaskCompactJSON(task)
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "count")
}

func TestDecodePipeline_UnwindShorthandAndLongForm(t *testing.T) {
	raw := []byte(`[
		{"$unwind": "$tags"},
		{"$unwind": {"path": "$more", "includeArrayIndex": "idx", "preserveNullAndEmptyArrays": true}}
	]`)

	op, err := DecodePipeline(wf.NewCollection("people"), raw)

	assert.NoError(t, err)
	assert.NotNil(t, op)
}

func TestDecodePipeline_ExprOperators(t *testing.T) {
	raw := []byte(`[
		{"$project": {"total": {"$add": ["$a", "$b", 1]}, "ok": {"$gt": ["$a", 0]}}}
	]`)

	op, err := DecodePipeline(wf.NewCollection("things"), raw)

	assert.NoError(t, err)
	assert.NotNil(t, op)
}

func TestDecodePipeline_LogicalSelectors(t *testing.T) {
	raw := []byte(`[
		{"$match": {"$or": [{"age": {"$lt": 18}}, {"age": {"$gt": 65}}]}}
	]`)

	op, err := DecodePipeline(wf.NewCollection("people"), raw)

	assert.NoError(t, err)
	assert.NotNil(t, op)
}

func TestDecodePipeline_WhereSelectorIsUnpipelinable(t *testing.T) {
	raw := []byte(`[
		{"$match": {"$where": "this.age >= 18"}}
	]`)

	op, err := DecodePipeline(wf.NewCollection("people"), raw)
	assert.NoError(t, err)

	task, err := wf.Compile(op)
	assert.NoError(t, err)
	assert.Contains(t, wf.TaskCompactJSON(task), "mapReduce")
}

func TestDecodePipeline_UnmodeledOperatorFallsBackToRawSelector(t *testing.T) {
	raw := []byte(`[
		{"$match": {"tags": {"$type": "string"}}}
	]`)

	op, err := DecodePipeline(wf.NewCollection("people"), raw)

	assert.NoError(t, err)
	assert.NotNil(t, op)
}

func TestDecodePipeline_RejectsMultiKeyStage(t *testing.T) {
	raw := []byte(`[{"$match": {}, "$sort": {}}]`)

	_, err := DecodePipeline(wf.NewCollection("people"), raw)

	assert.Error(t, err)
}

func TestDecodePipeline_RejectsUnsupportedStage(t *testing.T) {
	raw := []byte(`[{"$out": "other"}]`)

	_, err := DecodePipeline(wf.NewCollection("people"), raw)

	assert.Error(t, err)
}

func TestEncodeOpDebug_RoundTripsThroughJSON(t *testing.T) {
	op, err := DecodePipeline(wf.NewCollection("people"), []byte(`[{"$limit": 5}]`))
	assert.NoError(t, err)

	out, err := EncodeOpDebug(op)
	assert.NoError(t, err)
	assert.Contains(t, out, "Limit")
}
