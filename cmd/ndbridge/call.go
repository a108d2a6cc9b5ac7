package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/host"
	"github.com/wippyai/ndbridge/ndarray"
	"github.com/wippyai/ndbridge/runtime"
)

func newCallCmd(g *globalFlags) *cobra.Command {
	var (
		rawArgs []string
		rawKw   []string
		as      string
	)
	cmd := &cobra.Command{
		Use:   "call <path>",
		Short: "Call a function of the array module",
		Long: `Call a function by its dotted path from the array module.

Arguments and keyword values are YAML literals: 3, 2.5, true, "text",
null or nested lists such as [[1, 2], [3, 4]].`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs := make([]any, len(rawArgs))
			for i, raw := range rawArgs {
				v, err := parseLiteral(raw)
				if err != nil {
					return fmt.Errorf("--arg %q: %w", raw, err)
				}
				callArgs[i] = v
			}
			kwargs := make(map[string]any, len(rawKw))
			for _, raw := range rawKw {
				name, v, err := parseKeyword(raw)
				if err != nil {
					return err
				}
				kwargs[name] = v
			}
			target, err := targetType(as)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			return rt.Exec(ctx, func(s *runtime.Session) error {
				out, err := s.InvokeAs(args[0], callArgs, kwargs, target)
				if err != nil {
					return err
				}
				defer s.Free(out)
				text, err := render(s, out)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "positional argument as a YAML literal (repeatable)")
	cmd.Flags().StringArrayVar(&rawKw, "kw", nil, "keyword argument as name=YAML (repeatable)")
	cmd.Flags().StringVar(&as, "as", "", "convert the result to an element type or string")
	return cmd
}

// parseLiteral decodes a YAML scalar or sequence into the host values the
// codec accepts.
func parseLiteral(raw string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return normalize(v)
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return host.None, nil
	case int:
		return int64(x), nil
	case uint64:
		return nil, fmt.Errorf("integer %d does not fit in int64", x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		return nil, fmt.Errorf("mappings are not supported")
	}
	return v, nil
}

func parseKeyword(raw string) (string, any, error) {
	name, value, ok := strings.Cut(raw, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("--kw %q: expected name=value", raw)
	}
	v, err := parseLiteral(value)
	if err != nil {
		return "", nil, fmt.Errorf("--kw %q: %w", raw, err)
	}
	return name, v, nil
}

// targetType maps --as to a conversion target. An empty name selects the
// generic conversion.
func targetType(name string) (reflect.Type, error) {
	switch name {
	case "":
		return nil, nil
	case "string":
		return reflect.TypeFor[string](), nil
	}
	kind, ok := dtype.Parse(name)
	if !ok || !kind.Supported() {
		return nil, fmt.Errorf("--as %q: unknown type", name)
	}
	return kind.GoType(), nil
}

// render formats a call result. Arrays use the interpreter's string form.
func render(s *runtime.Session, v any) (string, error) {
	if arr, ok := v.(*ndarray.Array); ok {
		text, err := s.Str(arr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s\n%s", arr, text), nil
	}
	return fmt.Sprintf("%v", v), nil
}
