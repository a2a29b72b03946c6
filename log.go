package wf

import "github.com/sirupsen/logrus"

// traceCoalesce logs a smart constructor's coalescing decision when log is
// non-nil. It is purely observational — nothing in the op layer branches
// on whether logging is enabled, keeping construction deterministic and
// safe to call concurrently (spec.md §5).
func traceCoalesce(log *logrus.Logger, rule string, fields logrus.Fields) {
	if log == nil {
		return
	}
	log.WithFields(fields).Debugf("coalesce: %s", rule)
}

// traceMerge logs one dispatch-table case firing during merge.
func traceMerge(log *logrus.Logger, caseNum int, desc string) {
	if log == nil {
		return
	}
	log.WithField("case", caseNum).Debugf("merge: %s", desc)
}

// traceCrush logs one crush lowering decision.
func traceCrush(log *logrus.Logger, op Op, decision string) {
	if log == nil {
		return
	}
	log.WithField("op", op.Render().Type).Debugf("crush: %s", decision)
}
