// Package planio is the JSON boundary for op graphs: DecodePipeline reads
// a MongoDB extended-JSON aggregation pipeline array and builds a live
// wf.Op graph directly, and Encode* renders an Op or a compiled Task back
// to JSON for logging or a debugging client.
//
// This inverts the teacher's generator package: gmqb's translator.go
// turns extended-JSON query documents into Go source text that calls
// gmqb's builders, because gmqb's builder API is itself the deliverable.
// Here the op graph is the construction surface, so there is no
// source-text step — a pipeline array decodes straight into Op values
// through the same package-level Make* smart constructors any hand-written
// caller uses, and every coalescing rule still applies on the way in.
package planio

import (
	"fmt"
	"strings"

	wf "github.com/arrowdb/wfplan"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// DecodePipeline parses raw as an extended-JSON array of aggregation
// pipeline stage documents and folds it onto a Read of coll, returning
// the resulting Op graph. Each stage is built through wf's package-level
// smart constructors, so coalescing (Project-over-Project fusion, and so
// on) applies exactly as it would to a hand-written caller.
func DecodePipeline(coll wf.Collection, raw []byte) (wf.Op, error) {
	var arr bson.A
	if err := bson.UnmarshalExtJSON(raw, false, &arr); err != nil {
		return nil, fmt.Errorf("planio: decode pipeline: %w", err)
	}
	op := wf.MakeRead(coll)
	for i, item := range arr {
		doc, ok := item.(bson.D)
		if !ok {
			return nil, fmt.Errorf("planio: stage %d: expected a document, got %T", i, item)
		}
		next, err := buildStage(op, doc)
		if err != nil {
			return nil, fmt.Errorf("planio: stage %d: %w", i, err)
		}
		op = next
	}
	return op, nil
}

// buildStage applies one pipeline stage document on top of src, mirroring
// gmqb generator/translator.go's translatePipelineStage dispatch but
// building an Op instead of emitting Go source.
func buildStage(src wf.Op, doc bson.D) (wf.Op, error) {
	if len(doc) != 1 {
		return nil, fmt.Errorf("pipeline stage must have exactly one top-level operator, got %d", len(doc))
	}
	stageOp, stageVal := doc[0].Key, doc[0].Value

	switch stageOp {
	case "$match":
		filterDoc, ok := stageVal.(bson.D)
		if !ok {
			return nil, fmt.Errorf("$match: expected document, got %T", stageVal)
		}
		sel, err := decodeSelector(filterDoc)
		if err != nil {
			return nil, err
		}
		return wf.MakeMatch(src, sel), nil

	case "$project", "$addFields", "$set":
		d, ok := stageVal.(bson.D)
		if !ok {
			return nil, fmt.Errorf("%s: expected document, got %T", stageOp, stageVal)
		}
		shape, err := decodeReshapeDoc(d)
		if err != nil {
			return nil, err
		}
		return wf.MakeProject(src, shape), nil

	case "$sort":
		d, ok := stageVal.(bson.D)
		if !ok {
			return nil, fmt.Errorf("$sort: expected document, got %T", stageVal)
		}
		fields, err := decodeSortFields(d)
		if err != nil {
			return nil, err
		}
		return wf.MakeSort(src, fields), nil

	case "$group":
		d, ok := stageVal.(bson.D)
		if !ok {
			return nil, fmt.Errorf("$group: expected document, got %T", stageVal)
		}
		by, names, grouped, err := decodeGroupSpec(d)
		if err != nil {
			return nil, err
		}
		return wf.MakeGroup(src, by, names, grouped), nil

	case "$limit":
		return wf.MakeLimit(src, getInt64(stageVal)), nil
	case "$skip":
		return wf.MakeSkip(src, getInt64(stageVal)), nil

	case "$unwind":
		path, idx, preserve, err := decodeUnwind(stageVal)
		if err != nil {
			return nil, err
		}
		return wf.MakeUnwind(src, path, idx, preserve), nil

	case "$redact":
		e, err := decodeExpr(stageVal)
		if err != nil {
			return nil, err
		}
		return wf.MakeRedact(src, e), nil
	}

	return nil, fmt.Errorf("unsupported pipeline stage operator: %s", stageOp)
}

func getInt64(val interface{}) int64 {
	switch v := val.(type) {
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// decodeField turns a "$a.b.c" field reference string into a DocVar,
// recognizing "$$ROOT" as the whole-document reference.
func decodeField(ref string) wf.DocVar {
	if ref == "$$ROOT" {
		return wf.ROOT
	}
	path := strings.TrimPrefix(ref, "$")
	return wf.Field(strings.Split(path, ".")...)
}

// decodeExpr compiles an extended-JSON value into an Expr: a "$field"
// string becomes a Ref, a single-key document whose key starts with "$"
// becomes an operator expression, and everything else is a literal.
func decodeExpr(val interface{}) (wf.Expr, error) {
	switch v := val.(type) {
	case string:
		if strings.HasPrefix(v, "$") {
			return wf.Ref{V: decodeField(v)}, nil
		}
		return wf.Lit{Value: v}, nil
	case bson.D:
		if len(v) == 1 && strings.HasPrefix(v[0].Key, "$") {
			return decodeOperator(v[0].Key, v[0].Value)
		}
		return wf.Lit{Value: v}, nil
	default:
		return wf.Lit{Value: v}, nil
	}
}

// decodeExprArgs decodes an operator's operand value: an array becomes
// one Expr per element, anything else becomes a single-element slice
// (mirroring how $abs/$toLower/... accept a bare value instead of an
// array of one).
func decodeExprArgs(val interface{}) ([]wf.Expr, error) {
	arr, ok := val.(bson.A)
	if !ok {
		e, err := decodeExpr(val)
		if err != nil {
			return nil, err
		}
		return []wf.Expr{e}, nil
	}
	out := make([]wf.Expr, len(arr))
	for i, item := range arr {
		e, err := decodeExpr(item)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// decodeOperator builds the general (non-accumulator) Expr for a single
// "$name": value operator document entry.
func decodeOperator(name string, val interface{}) (wf.Expr, error) {
	switch name {
	case "$cond":
		return decodeCond(val)
	case "$filter":
		return decodeFilter(val)
	case "$getField":
		return decodeGetField(val)
	case "$ifNull":
		args, err := decodeExprArgs(val)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("$ifNull expects 2 args, got %d", len(args))
		}
		return wf.IfNull(args[0], args[1]), nil
	case "$arrayElemAt":
		args, err := decodeExprArgs(val)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("$arrayElemAt expects 2 args, got %d", len(args))
		}
		return wf.ArrayElemAt(args[0], args[1]), nil
	}

	args, err := decodeExprArgs(val)
	if err != nil {
		return nil, err
	}

	switch name {
	case "$add":
		return wf.Add(args...), nil
	case "$multiply":
		return wf.Multiply(args...), nil
	case "$concat":
		return wf.Concat(args...), nil
	case "$and":
		return wf.BoolAnd(args...), nil
	case "$or":
		return wf.BoolOr(args...), nil
	case "$mergeObjects":
		return wf.MergeObjects(args...), nil
	}

	if len(args) == 1 {
		switch name {
		case "$abs":
			return wf.Abs(args[0]), nil
		case "$ceil":
			return wf.Ceil(args[0]), nil
		case "$floor":
			return wf.Floor(args[0]), nil
		case "$sqrt":
			return wf.Sqrt(args[0]), nil
		case "$not":
			return wf.BoolNot(args[0]), nil
		case "$toLower":
			return wf.ToLower(args[0]), nil
		case "$toUpper":
			return wf.ToUpper(args[0]), nil
		case "$strLenCP":
			return wf.StrLenCP(args[0]), nil
		case "$size":
			return wf.Size(args[0]), nil
		}
	}

	if len(args) == 2 {
		switch name {
		case "$subtract":
			return wf.Subtract(args[0], args[1]), nil
		case "$divide":
			return wf.Divide(args[0], args[1]), nil
		case "$mod":
			return wf.Mod(args[0], args[1]), nil
		case "$cmp":
			return wf.Cmp(args[0], args[1]), nil
		case "$eq":
			return wf.EqExpr(args[0], args[1]), nil
		case "$ne":
			return wf.NeExpr(args[0], args[1]), nil
		case "$gt":
			return wf.GtExpr(args[0], args[1]), nil
		case "$gte":
			return wf.GteExpr(args[0], args[1]), nil
		case "$lt":
			return wf.LtExpr(args[0], args[1]), nil
		case "$lte":
			return wf.LteExpr(args[0], args[1]), nil
		}
	}

	return nil, fmt.Errorf("unsupported expression operator: %s", name)
}

func decodeCond(val interface{}) (wf.Expr, error) {
	switch v := val.(type) {
	case bson.A:
		if len(v) != 3 {
			return nil, fmt.Errorf("$cond array form expects 3 elements, got %d", len(v))
		}
		ifE, err := decodeExpr(v[0])
		if err != nil {
			return nil, err
		}
		thenE, err := decodeExpr(v[1])
		if err != nil {
			return nil, err
		}
		elseE, err := decodeExpr(v[2])
		if err != nil {
			return nil, err
		}
		return wf.Cond(ifE, thenE, elseE), nil
	case bson.D:
		ifV, thenV, elseV := getMapValue(v, "if"), getMapValue(v, "then"), getMapValue(v, "else")
		ifE, err := decodeExpr(ifV)
		if err != nil {
			return nil, err
		}
		thenE, err := decodeExpr(thenV)
		if err != nil {
			return nil, err
		}
		elseE, err := decodeExpr(elseV)
		if err != nil {
			return nil, err
		}
		return wf.Cond(ifE, thenE, elseE), nil
	}
	return nil, fmt.Errorf("$cond: expected array or document, got %T", val)
}

func decodeFilter(val interface{}) (wf.Expr, error) {
	d, ok := val.(bson.D)
	if !ok {
		return nil, fmt.Errorf("$filter: expected document, got %T", val)
	}
	input, err := decodeExpr(getMapValue(d, "input"))
	if err != nil {
		return nil, err
	}
	as, _ := getMapValue(d, "as").(string)
	cond, err := decodeExpr(getMapValue(d, "cond"))
	if err != nil {
		return nil, err
	}
	return wf.Filter(input, as, cond), nil
}

func decodeGetField(val interface{}) (wf.Expr, error) {
	d, ok := val.(bson.D)
	if !ok {
		return nil, fmt.Errorf("$getField: expected document, got %T", val)
	}
	field, err := decodeExpr(getMapValue(d, "field"))
	if err != nil {
		return nil, err
	}
	input, err := decodeExpr(getMapValue(d, "input"))
	if err != nil {
		return nil, err
	}
	return wf.GetField(field, input), nil
}

func getMapValue(d bson.D, key string) interface{} {
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// --- reshapes ($project / $addFields / $set output shape) ---

func decodeReshapeDoc(d bson.D) (wf.Reshape, error) {
	node, err := decodeReshapeNode(d)
	if err != nil {
		return wf.Reshape{}, err
	}
	shape, ok := node.(wf.Reshape)
	if !ok {
		return wf.Reshape{}, fmt.Errorf("reshape: top level must be a document")
	}
	return shape, nil
}

// decodeReshapeNode recurses into a value deciding whether it names a
// nested document shape (every key is a plain field name) or an
// expression leaf (a single "$operator" key, a "$field" reference, or a
// scalar), the same test gmqb's translateElement uses to tell a logical
// sub-document from an operator one.
func decodeReshapeNode(val interface{}) (wf.ReshapeNode, error) {
	if d, ok := val.(bson.D); ok && len(d) > 0 && !isOperatorDoc(d) {
		names := make([]string, len(d))
		nodes := make([]wf.ReshapeNode, len(d))
		for i, e := range d {
			n, err := decodeReshapeNode(e.Value)
			if err != nil {
				return nil, err
			}
			names[i] = e.Key
			nodes[i] = n
		}
		return wf.NewDoc(names, nodes), nil
	}
	if a, ok := val.(bson.A); ok {
		nodes := make([]wf.ReshapeNode, len(a))
		for i, e := range a {
			n, err := decodeReshapeNode(e)
			if err != nil {
				return nil, err
			}
			nodes[i] = n
		}
		return wf.NewArr(nodes), nil
	}
	e, err := decodeExpr(val)
	if err != nil {
		return nil, err
	}
	return wf.NodeExpr(e), nil
}

func isOperatorDoc(d bson.D) bool {
	return len(d) == 1 && strings.HasPrefix(d[0].Key, "$")
}

// --- $group ---

func decodeGroupSpec(d bson.D) (by wf.ReshapeNode, names []string, grouped map[string]wf.Expr, err error) {
	by, err = decodeReshapeNode(getMapValue(d, "_id"))
	if err != nil {
		return nil, nil, nil, err
	}
	grouped = make(map[string]wf.Expr)
	for _, e := range d {
		if e.Key == "_id" {
			continue
		}
		acc, err := decodeAccumulator(e.Value)
		if err != nil {
			return nil, nil, nil, err
		}
		names = append(names, e.Key)
		grouped[e.Key] = acc
	}
	return by, names, grouped, nil
}

func decodeAccumulator(val interface{}) (wf.Expr, error) {
	d, ok := val.(bson.D)
	if !ok || len(d) != 1 {
		return nil, fmt.Errorf("group field: expected a single accumulator document, got %T", val)
	}
	arg, err := decodeExpr(d[0].Value)
	if err != nil {
		return nil, err
	}
	switch d[0].Key {
	case "$sum":
		return wf.Sum(arg), nil
	case "$avg":
		return wf.Avg(arg), nil
	case "$min":
		return wf.Min(arg), nil
	case "$max":
		return wf.Max(arg), nil
	case "$first":
		return wf.First(arg), nil
	case "$last":
		return wf.Last(arg), nil
	case "$push":
		return wf.Push(arg), nil
	case "$addToSet":
		return wf.AddToSet(arg), nil
	case "$stdDevPop":
		return wf.StdDevPop(arg), nil
	}
	return nil, fmt.Errorf("unsupported accumulator: %s", d[0].Key)
}

// --- $sort ---

func decodeSortFields(d bson.D) ([]wf.SortField, error) {
	out := make([]wf.SortField, len(d))
	for i, e := range d {
		asc, err := decodeSortDirection(e.Value)
		if err != nil {
			return nil, err
		}
		out[i] = wf.SortField{Field: decodeField("$" + e.Key), Ascending: asc}
	}
	return out, nil
}

func decodeSortDirection(val interface{}) (bool, error) {
	switch v := val.(type) {
	case int32:
		return v > 0, nil
	case int64:
		return v > 0, nil
	case float64:
		return v > 0, nil
	}
	return false, fmt.Errorf("$sort: expected a numeric direction, got %T", val)
}

// --- $unwind ---

func decodeUnwind(val interface{}) (path wf.DocVar, includeArrayIndex string, preserve bool, err error) {
	switch v := val.(type) {
	case string:
		return decodeField(v), "", false, nil
	case bson.D:
		pathStr, _ := getMapValue(v, "path").(string)
		if pathStr == "" {
			return wf.DocVar{}, "", false, fmt.Errorf("$unwind: missing path")
		}
		idx, _ := getMapValue(v, "includeArrayIndex").(string)
		preserveVal, _ := getMapValue(v, "preserveNullAndEmptyArrays").(bool)
		return decodeField(pathStr), idx, preserveVal, nil
	}
	return wf.DocVar{}, "", false, fmt.Errorf("$unwind: expected string or document, got %T", val)
}

// --- $match ---

func decodeSelector(doc bson.D) (wf.Selector, error) {
	var out wf.Selector
	first := true
	for _, e := range doc {
		s, err := decodeSelectorElement(e.Key, e.Value)
		if err != nil {
			return wf.Selector{}, err
		}
		if first {
			out = s
			first = false
			continue
		}
		out = out.And(s)
	}
	return out, nil
}

func decodeSelectorElement(key string, val interface{}) (wf.Selector, error) {
	switch key {
	case "$and":
		return decodeSelectorLogical(wf.AndSel, val)
	case "$or":
		return decodeSelectorLogical(wf.OrSel, val)
	case "$nor":
		return decodeSelectorLogical(wf.NorSel, val)
	case "$expr":
		e, err := decodeExpr(val)
		if err != nil {
			return wf.Selector{}, err
		}
		return wf.ExprSel(e), nil
	case "$where":
		js, _ := val.(string)
		return wf.WhereSel(js), nil
	}

	if subDoc, ok := val.(bson.D); ok && len(subDoc) > 0 && isAllOperatorKeys(subDoc) {
		var out wf.Selector
		first := true
		for _, e := range subDoc {
			s, err := decodeFieldOperator(key, e.Key, e.Value)
			if err != nil {
				return wf.Selector{}, err
			}
			if first {
				out = s
				first = false
				continue
			}
			out = out.And(s)
		}
		return out, nil
	}

	return wf.EqSel(decodeField("$"+key), val), nil
}

func isAllOperatorKeys(d bson.D) bool {
	for _, e := range d {
		if !strings.HasPrefix(e.Key, "$") {
			return false
		}
	}
	return true
}

func decodeSelectorLogical(combine func(...wf.Selector) wf.Selector, val interface{}) (wf.Selector, error) {
	arr, ok := val.(bson.A)
	if !ok {
		return wf.Selector{}, fmt.Errorf("logical operator: expected array, got %T", val)
	}
	subs := make([]wf.Selector, len(arr))
	for i, item := range arr {
		d, ok := item.(bson.D)
		if !ok {
			return wf.Selector{}, fmt.Errorf("logical operator: expected document in array, got %T", item)
		}
		s, err := decodeSelector(d)
		if err != nil {
			return wf.Selector{}, err
		}
		subs[i] = s
	}
	return combine(subs...), nil
}

func decodeFieldOperator(fieldName, op string, val interface{}) (wf.Selector, error) {
	field := decodeField("$" + fieldName)
	switch op {
	case "$eq":
		return wf.EqSel(field, val), nil
	case "$ne":
		return wf.NeSel(field, val), nil
	case "$gt":
		return wf.GtSel(field, val), nil
	case "$gte":
		return wf.GteSel(field, val), nil
	case "$lt":
		return wf.LtSel(field, val), nil
	case "$lte":
		return wf.LteSel(field, val), nil
	case "$in":
		return wf.InSel(field, toValues(val)...), nil
	case "$nin":
		return wf.NinSel(field, toValues(val)...), nil
	case "$exists":
		b, _ := val.(bool)
		return wf.ExistsSel(field, b), nil
	case "$size":
		return wf.SizeSel(field, int(getInt64(val))), nil
	case "$regex":
		pattern, _ := val.(string)
		return wf.RegexSel(field, pattern, ""), nil
	case "$not":
		d, ok := val.(bson.D)
		if !ok {
			return wf.Selector{}, fmt.Errorf("$not: expected document, got %T", val)
		}
		var inner wf.Selector
		first := true
		for _, e := range d {
			s, err := decodeFieldOperator(fieldName, e.Key, e.Value)
			if err != nil {
				return wf.Selector{}, err
			}
			if first {
				inner = s
				first = false
				continue
			}
			inner = inner.And(s)
		}
		return wf.NotSel(field, inner), nil
	case "$elemMatch":
		d, ok := val.(bson.D)
		if !ok {
			return wf.Selector{}, fmt.Errorf("$elemMatch: expected document, got %T", val)
		}
		inner, err := decodeSelector(d)
		if err != nil {
			return wf.Selector{}, err
		}
		return wf.ElemMatchSel(field, inner), nil
	}
	// Operators this package's Selector doesn't model explicitly
	// ($type, $mod, $all, ...) pass through as a raw clause, mirroring
	// gmqb's RawStage escape hatch.
	return wf.RawSel(bson.D{{Key: fieldName, Value: bson.D{{Key: op, Value: val}}}}), nil
}

func toValues(val interface{}) []interface{} {
	arr, ok := val.(bson.A)
	if !ok {
		return []interface{}{val}
	}
	out := make([]interface{}, len(arr))
	copy(out, arr)
	return out
}
