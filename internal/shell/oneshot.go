package shell

import "context"

// RunOnce runs a single command given as arguments, the way `pyc run -- ls
// -l` does, and returns its exit status. The first word goes through alias
// expansion and builtins like any interactive line. An empty argv is an
// error with status 255.
func RunOnce(ctx context.Context, argv []string, opts ...DispatcherOption) int {
	if len(argv) == 0 {
		return exitUnknown
	}
	return NewDispatcher(opts...).Exec(ctx, argv).ExitCode
}
