package wf

// Compile lowers a completed op graph to a Task: prune unused fields,
// apply finalize's rewrite rules, then crush to the execution IR
// (spec.md §4). Field pruning can be disabled via WithFieldPruning(false)
// for inspecting an unpruned plan shape; finalize and crush always run.
func Compile(op Op, opts ...Option) (task Task, err error) {
	cfg := buildConfig(opts)
	requested := op

	if cfg.cache != nil {
		if cached, ok := cfg.cache.Get(requested); ok {
			return cached, nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	if cfg.pruneUnusedFields {
		op = DeleteUnusedFields(op)
	}
	op = Finalize(op)

	_, task = crush(op, cfg)

	if cfg.cache != nil {
		cfg.cache.Set(requested, task)
	}
	return task, nil
}
