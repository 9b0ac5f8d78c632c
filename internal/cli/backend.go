package cli

import (
	"context"
	"time"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/backend/distributed"
	"github.com/aqueduct-go/aqueduct/internal/backend/immediate"
	"github.com/aqueduct-go/aqueduct/internal/backend/workerpool"
	"github.com/aqueduct-go/aqueduct/internal/resolver"
)

// BackendFlags is the subset of `run`'s flags that select a backend
// (spec.md §6's "recognized shapes"): at most one of Concurrent,
// Multiprocessing, DaskN, or DaskURL may be set, falling back to the
// immediate backend.
//
// Go has no analogue of a forked worker pool the way Python's
// multiprocessing module does without process-per-task overhead, so
// --multiprocessing is realized as the same distributed backend --dask uses,
// dispatching chains in-process: both describe "more than one cooperating
// worker". Only --dask-url connects to a NATS broker.
type BackendFlags struct {
	Concurrent      int
	Multiprocessing int
	DaskN           int
	DaskURL         string
}

// ResolveBackend builds the aqcontext.BackendSpec wire form and the actual
// resolver.Backend the flags describe. taskRegistry is only consulted for
// the distributed backend, which needs it to reconstruct tasks on whichever
// side executes a chain.
func ResolveBackend(ctx context.Context, flags BackendFlags, taskRegistry *distributed.Registry) (aqcontext.BackendSpec, resolver.Backend, error) {
	set := 0
	if flags.Concurrent > 0 {
		set++
	}
	if flags.Multiprocessing > 0 {
		set++
	}
	if flags.DaskN > 0 {
		set++
	}
	if flags.DaskURL != "" {
		set++
	}
	if set > 1 {
		return aqcontext.BackendSpec{}, nil, aqueduct.NewError(aqueduct.KindBackendSpecParse, "",
			"at most one of --concurrent, --multiprocessing, --dask, --dask-url may be given")
	}

	switch {
	case flags.Concurrent > 0:
		return aqcontext.BackendSpec{Type: "concurrent", NWorkers: flags.Concurrent}, workerpool.New(flags.Concurrent), nil

	case flags.Multiprocessing > 0:
		return aqcontext.BackendSpec{Type: "multiprocessing", NWorkers: flags.Multiprocessing}, distributed.New(taskRegistry, flags.Multiprocessing), nil

	case flags.DaskN > 0:
		return aqcontext.BackendSpec{Type: "dask", NWorkers: flags.DaskN}, distributed.New(taskRegistry, flags.DaskN), nil

	case flags.DaskURL != "":
		conn, err := distributed.ConnectNATS(ctx, flags.DaskURL, 5, 200*time.Millisecond)
		if err != nil {
			return aqcontext.BackendSpec{}, nil, aqueduct.NewError(aqueduct.KindBackendSpecParse, "",
				"connect to dask address %q: %v", flags.DaskURL, err)
		}
		b := distributed.New(taskRegistry, 1)
		b.WithTransport(&distributed.NATSTransport{Conn: conn, Subject: "aqueduct.dispatch"})
		return aqcontext.BackendSpec{Type: "dask", Address: flags.DaskURL}, b, nil

	default:
		return aqcontext.BackendSpec{Type: "immediate"}, immediate.New(), nil
	}
}
