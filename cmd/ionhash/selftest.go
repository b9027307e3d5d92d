package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/amazon-ion/ion-go/ion"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ionhash/internal/appstate"
	"ionhash/ionhash"
)

// identityAccumulator concatenates every update() call unchanged, so a
// selftest scenario's digest is exactly the concatenation of hash bytes
// the driver produced.
type identityAccumulator struct{ buf []byte }

func (a *identityAccumulator) Update(b []byte) { a.buf = append(a.buf, b...) }

func (a *identityAccumulator) Digest() []byte {
	d := a.buf
	a.buf = nil
	return d
}

func identityProvider() ionhash.HashAccumulator { return &identityAccumulator{} }

type selftestCase struct {
	name string
	want string // space-separated hex bytes
	run  func(h *ionhash.Hasher) error
}

var selftestCases = []selftestCase{
	{
		name: "null",
		want: "0B 0F 0E",
		run: func(h *ionhash.Hasher) error {
			return h.Scalar(ionhash.Event{Kind: ionhash.ScalarEvent, Type: ion.NullType})
		},
	},
	{
		name: "false",
		want: "0B 10 0E",
		run: func(h *ionhash.Hasher) error {
			return h.Scalar(ionhash.Event{Kind: ionhash.ScalarEvent, Type: ion.BoolType, Value: false})
		},
	},
	{
		name: "5",
		want: "0B 20 05 0E",
		run: func(h *ionhash.Hasher) error {
			return h.Scalar(ionhash.Event{Kind: ionhash.ScalarEvent, Type: ion.IntType, Value: int64(5)})
		},
	},
	{
		name: `"hi"`,
		want: "0B 80 68 69 0E",
		run: func(h *ionhash.Hasher) error {
			return h.Scalar(ionhash.Event{Kind: ionhash.ScalarEvent, Type: ion.StringType, Value: "hi"})
		},
	},
	{
		name: "[1, 2, 3]",
		want: "0B B0 0B 20 01 0E 0B 20 02 0E 0B 20 03 0E 0E",
		run: func(h *ionhash.Hasher) error {
			if err := h.StepIn(ionhash.Event{Kind: ionhash.ContainerStartEvent, Type: ion.ListType}); err != nil {
				return err
			}
			for _, n := range []int64{1, 2, 3} {
				if err := h.Scalar(ionhash.Event{Kind: ionhash.ScalarEvent, Type: ion.IntType, Value: n}); err != nil {
					return err
				}
			}
			return h.StepOut()
		},
	},
	{
		name: "{a:1, b:2, c:3}",
		want: "0B D0 0C 0B 70 61 0C 0E 0C 0B 20 01 0C 0E " +
			"0C 0B 70 62 0C 0E 0C 0B 20 02 0C 0E " +
			"0C 0B 70 63 0C 0E 0C 0B 20 03 0C 0E 0E",
		run: func(h *ionhash.Hasher) error {
			if err := h.StepIn(ionhash.Event{Kind: ionhash.ContainerStartEvent, Type: ion.StructType}); err != nil {
				return err
			}
			// fed out of order on purpose: any field order must hash the same.
			for _, f := range []struct {
				name string
				val  int64
			}{{"c", 3}, {"a", 1}, {"b", 2}} {
				tok := ion.NewSymbolTokenFromString(f.name)
				ev := ionhash.Event{Kind: ionhash.ScalarEvent, Type: ion.IntType, Value: f.val, FieldName: &tok}
				if err := h.Scalar(ev); err != nil {
					return err
				}
			}
			return h.StepOut()
		},
	},
	{
		name: "hi::7",
		want: "0B E0 0B 70 68 69 0E 0B 20 07 0E 0E",
		run: func(h *ionhash.Hasher) error {
			tok := ion.NewSymbolTokenFromString("hi")
			return h.Scalar(ionhash.Event{Kind: ionhash.ScalarEvent, Type: ion.IntType, Value: int64(7), Annotations: []ion.SymbolToken{tok}})
		},
	},
}

// runSelftest implements `ionhash selftest`: runs a battery of concrete
// end-to-end byte sequences in-process and reports pass/fail per scenario.
func runSelftest(ctx context.Context, cmd *cli.Command) error {
	env := appstate.EnvFromContext(ctx)

	failed := 0
	for _, tc := range selftestCases {
		h := ionhash.NewHasher(identityProvider)
		err := tc.run(h)
		var got []byte
		if err == nil {
			got, err = h.Digest()
		}

		want, werr := parseHexBytes(tc.want)
		if werr != nil {
			return fmt.Errorf("selftest: bad expected bytes for %q: %w", tc.name, werr)
		}

		switch {
		case err != nil:
			failed++
			fmt.Fprintf(cmd.Writer, "FAIL %-20s error: %v\n", tc.name, err)
		case !bytes.Equal(got, want):
			failed++
			fmt.Fprintf(cmd.Writer, "FAIL %-20s got %s, want %s\n", tc.name, hex.EncodeToString(got), hex.EncodeToString(want))
		default:
			fmt.Fprintf(cmd.Writer, "PASS %-20s %s\n", tc.name, hex.EncodeToString(got))
		}
	}

	env.Log.Debug("selftest complete", zap.Int("failed", failed), zap.Int("total", len(selftestCases)))
	if failed > 0 {
		return fmt.Errorf("selftest: %d of %d scenarios failed", failed, len(selftestCases))
	}
	return nil
}

func parseHexBytes(s string) ([]byte, error) {
	fields := strings.Fields(s)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		b, err := hex.DecodeString(f)
		if err != nil || len(b) != 1 {
			return nil, fmt.Errorf("invalid byte %q", f)
		}
		out = append(out, b[0])
	}
	return out, nil
}
