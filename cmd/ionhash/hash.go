package main

import (
	"archive/zip"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/amazon-ion/ion-go/ion"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ionhash/internal/appstate"
	"ionhash/ionhash"
)

// runHash implements `ionhash hash`, printing one "<algorithm> <digest>
// <path>" line per input file. --alg accepts a comma-separated list: given
// more than one algorithm, every input is hashed once and one line per
// algorithm is printed, using ionhash.MultiHasher so the value tree is only
// walked a single time.
func runHash(ctx context.Context, cmd *cli.Command) error {
	env := appstate.EnvFromContext(ctx)

	algSpec := cmd.String("alg")
	if algSpec == "" {
		algSpec = env.Cfg.Algorithm
	}
	algs := splitAlgorithms(algSpec)

	provider, err := newProviderForAlgorithms(algs)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	for _, p := range paths {
		if strings.EqualFold(path.Ext(p), ".zip") {
			zipProvider := provider
			if len(algs) == 1 {
				// a zip archive can bundle many entries, so reach for the
				// pooled provider to avoid allocating a fresh hash.Hash per
				// entry. Pooling only supports a single algorithm.
				pooled, err := ionhash.NewPooledHasherProvider(algs[0])
				if err != nil {
					return fmt.Errorf("hash: %w", err)
				}
				zipProvider = pooled
			}
			if err := hashZipArchive(cmd, p, cmd.String("pattern"), algs, zipProvider, env); err != nil {
				return fmt.Errorf("hash: %s: %w", p, err)
			}
			continue
		}

		digest, root, err := hashPath(p, provider)
		if err != nil {
			return fmt.Errorf("hash: %s: %w", p, err)
		}
		printDigestLines(cmd, env, algs, digest, root, p)
	}
	return nil
}

// splitAlgorithms parses a comma-separated algorithm list, trimming
// whitespace around each name and dropping empty entries.
func splitAlgorithms(spec string) []string {
	parts := strings.Split(spec, ",")
	algs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			algs = append(algs, p)
		}
	}
	return algs
}

func newProviderForAlgorithms(algs []string) (ionhash.HasherProvider, error) {
	if len(algs) == 1 {
		return ionhash.NewHasherProvider(algs[0])
	}
	return ionhash.NewMultiHasherProvider(algs...)
}

// printDigestLines prints one "<algorithm> <digest> <label>" line per
// requested algorithm. root is the per-algorithm digest set from
// HashReader.RootDigests; it is nil when provider wasn't built from
// NewMultiHasherProvider, in which case primary is the sole digest.
func printDigestLines(cmd *cli.Command, env *appstate.Env, algs []string, primary []byte, root map[string][]byte, label string) {
	if root == nil {
		env.Log.Debug("hashed file", zap.String("path", label), zap.String("algorithm", algs[0]))
		fmt.Fprintf(cmd.Writer, "%s %s %s\n", algs[0], hex.EncodeToString(primary), label)
		return
	}
	for _, alg := range algs {
		env.Log.Debug("hashed file", zap.String("path", label), zap.String("algorithm", alg))
		fmt.Fprintf(cmd.Writer, "%s %s %s\n", alg, hex.EncodeToString(root[alg]), label)
	}
}

// hashZipArchive hashes every Ion file in a zip archive whose entry name has
// the given prefix, printing one "<algorithm> <digest> <archive>!<entry>"
// line per matched entry per requested algorithm. provider is typically a
// pooled provider (NewPooledHasherProvider): an archive can bundle many
// entries, and pooling avoids allocating a fresh hash.Hash per entry.
func hashZipArchive(cmd *cli.Command, archivePath, pattern string, algs []string, provider ionhash.HasherProvider, env *appstate.Env) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, pattern) {
			continue
		}
		if !isSafeZipEntryName(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
		if err := hashZipEntry(cmd, archivePath, f, algs, provider, env); err != nil {
			return err
		}
	}
	return nil
}

// isSafeZipEntryName rejects entries that could escape an extraction
// directory: absolute paths and those containing ".." components. hashing
// only ever reads a zip entry, never extracts it to disk, but a reader that
// reports digests for attacker-controlled entry names should not be fooled
// by the same Zip Slip tricks an extractor would be.
func isSafeZipEntryName(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func hashZipEntry(cmd *cli.Command, archivePath string, f *zip.File, algs []string, provider ionhash.HasherProvider, env *appstate.Env) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	reader := ion.NewReader(rc)
	hr := ionhash.NewHashReader(reader, provider)
	if !hr.Next() {
		if err := hr.Err(); err != nil {
			return fmt.Errorf("%s: reading Ion value: %w", f.Name, err)
		}
		return fmt.Errorf("%s: contains no Ion values", f.Name)
	}
	if err := walkValueChildren(hr); err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	digest, err := hr.Digest()
	if err != nil {
		return fmt.Errorf("%s: computing digest: %w", f.Name, err)
	}
	root, _ := hr.RootDigests()

	env.Log.Debug("hashed archive entry", zap.String("archive", archivePath), zap.String("entry", f.Name))
	printDigestLines(cmd, env, algs, digest, root, archivePath+"!"+f.Name)
	return nil
}

// hashPath hashes the Ion value(s) in path (or stdin, for "-"), returning
// the primary digest and, when provider was built from
// NewMultiHasherProvider, the full per-algorithm digest set.
func hashPath(path string, provider ionhash.HasherProvider) (digest []byte, rootDigests map[string][]byte, err error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	reader := ion.NewReader(r)
	hr := ionhash.NewHashReader(reader, provider)

	if !hr.Next() {
		if err := hr.Err(); err != nil {
			return nil, nil, fmt.Errorf("reading Ion value: %w", err)
		}
		return nil, nil, fmt.Errorf("input contains no Ion values")
	}
	if err := walkValueChildren(hr); err != nil {
		return nil, nil, err
	}

	if hr.Next() {
		return nil, nil, fmt.Errorf("input contains more than one top-level value, unsupported")
	}
	if err := hr.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading Ion value: %w", err)
	}

	digest, err = hr.Digest()
	if err != nil {
		return nil, nil, fmt.Errorf("computing digest: %w", err)
	}
	root, _ := hr.RootDigests()
	return digest, root, nil
}

// walkValueChildren descends into the container the reader is currently
// positioned at (if any) and fully walks its children, so the whole value
// tree is hashed rather than relying on HashReader's skip-materialization
// path.
func walkValueChildren(hr *ionhash.HashReader) error {
	switch hr.Type() {
	case ion.ListType, ion.SexpType, ion.StructType:
		if hr.IsNull() {
			return nil
		}
		if err := hr.StepIn(); err != nil {
			return fmt.Errorf("stepping into container: %w", err)
		}
		for hr.Next() {
			if err := walkValueChildren(hr); err != nil {
				return err
			}
		}
		if err := hr.Err(); err != nil {
			return fmt.Errorf("reading container children: %w", err)
		}
		if err := hr.StepOut(); err != nil {
			return fmt.Errorf("stepping out of container: %w", err)
		}
	}
	return nil
}
