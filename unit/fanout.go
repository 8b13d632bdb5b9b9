package unit

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Fanout calls every unit concurrently with the same input and returns the
// outputs in unit order. The first error cancels the context passed to the
// remaining calls and is returned. env.Guard should be set when units share
// env.Context.
func Fanout(ctx context.Context, env Env, units []*Unit, in Input) ([]Output, error) {
	ctx, _ = ensureRequestID(ctx)

	outs := make([]Output, len(units))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range units {
		g.Go(func() error {
			out, err := u.Call(gctx, env, in)
			if err != nil {
				return err
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}
