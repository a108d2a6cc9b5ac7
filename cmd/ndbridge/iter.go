package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wippyai/ndbridge/cursor"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/ndarray"
	"github.com/wippyai/ndbridge/runtime"
)

// arrayFlags describe the arange array iter and explore walk over.
type arrayFlags struct {
	shape   []int
	dtype   string
	flags   []string
	casting string
}

func (a *arrayFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntSliceVar(&a.shape, "shape", []int{2, 3}, "array shape")
	cmd.Flags().StringVar(&a.dtype, "dtype", "int64", "element type")
	cmd.Flags().StringSliceVar(&a.flags, "flag", nil, "iterator flags: dont_negate_strides, refs_ok, zerosize_ok, buffered, delay_bufalloc")
	cmd.Flags().StringVar(&a.casting, "casting", "", "casting rule: no, equiv, safe, same_kind, unsafe")
}

// open builds arange(size) reshaped to the requested shape and a cursor
// over it. The caller frees both.
func (a *arrayFlags) open(s *runtime.Session) (*ndarray.Array, *cursor.Cursor, error) {
	flags, err := foreign.ParseIterFlags(a.flags)
	if err != nil {
		return nil, nil, err
	}
	size := 1
	shape := make([]any, len(a.shape))
	for i, d := range a.shape {
		if d < 0 {
			return nil, nil, fmt.Errorf("negative dimension %d", d)
		}
		size *= d
		shape[i] = d
	}

	flat, err := s.Invoke("arange", []any{size}, map[string]any{"dtype": a.dtype})
	if err != nil {
		return nil, nil, err
	}
	defer s.Free(flat)
	out, err := s.Invoke("reshape", []any{flat, shape}, nil)
	if err != nil {
		return nil, nil, err
	}
	arr, ok := out.(*ndarray.Array)
	if !ok {
		s.Free(out)
		return nil, nil, fmt.Errorf("reshape returned %T", out)
	}

	c, err := s.NewCursor(arr, flags, a.casting)
	if err != nil {
		s.Free(arr)
		return nil, nil, err
	}
	return arr, c, nil
}

func newIterCmd(g *globalFlags) *cobra.Command {
	af := &arrayFlags{}
	cmd := &cobra.Command{
		Use:   "iter",
		Short: "Walk an arange array with a cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			return rt.Exec(ctx, func(s *runtime.Session) error {
				arr, c, err := af.open(s)
				if err != nil {
					return err
				}
				defer s.Free(arr)
				defer c.Close()
				return walk(cmd.OutOrStdout(), c)
			})
		},
	}
	af.register(cmd)
	return cmd
}

// walk prints one line per element: multi-index, C index and value.
func walk(w io.Writer, c *cursor.Cursor) error {
	for {
		v, ok, err := c.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		multi, err := c.MultiIndex()
		if err != nil {
			return err
		}
		idx, err := c.Index()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v\t%d\t%v\n", multi, idx, v)
	}
}
