package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/unicitylabs/mtree/datahash"
	"github.com/unicitylabs/mtree/logger"
	"github.com/unicitylabs/mtree/merkle"
	"github.com/urfave/cli/v2"
)

func toMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func newLoggerContext(c *cli.Context) logger.ContextInterface {
	log := logger.New("smt")
	log.Configure(c.String("log-style"), c.Bool("debug"), c.String("log-file"))
	return logger.NewContext(c.Context, log)
}

func parseConfig(c *cli.Context) (merkle.Config, error) {
	alg, err := datahash.ParseAlgorithm(strings.ToUpper(c.String("alg")))
	if err != nil {
		return merkle.Config{}, err
	}
	return merkle.NewConfig(alg, c.Bool("sum"))
}

// leafFlag parses KEY=DATA, or KEY=DATA:COUNTER for sum trees. KEY accepts
// 0b, 0x and 0o prefixes.
func leafFlag(s string, summed bool) (*big.Int, []byte, *big.Int, error) {
	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 {
		return nil, nil, nil, fmt.Errorf("leaf %q is not KEY=DATA[:COUNTER]", s)
	}
	key, ok := new(big.Int).SetString(kv[0], 0)
	if !ok {
		return nil, nil, nil, fmt.Errorf("bad key %q", kv[0])
	}
	data := kv[1]
	var counter *big.Int
	if !summed {
		return key, []byte(data), nil, nil
	}
	if i := strings.LastIndex(data, ":"); i >= 0 {
		counter, ok = new(big.Int).SetString(data[i+1:], 10)
		if !ok {
			return nil, nil, nil, fmt.Errorf("bad counter in %q", s)
		}
		data = data[:i]
	}
	return key, []byte(data), counter, nil
}

func startProfile(c *cli.Context) (func(), error) {
	file := c.String("cpuprofile")
	if file == "" {
		return func() {}, nil
	}
	f, err := os.Create(file)
	if err != nil {
		return nil, errors.Wrap(err, "could not create CPU profile")
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "could not start CPU profile")
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

// bench inserts random leaves, finalizes, then proves and verifies a sample
// of present and absent keys, reporting timings for each phase.
func bench(c *cli.Context) error {
	ctx := newLoggerContext(c)
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	stop, err := startProfile(c)
	if err != nil {
		return err
	}
	defer stop()

	n := c.Int("leaves")
	depth := uint(c.Int("bits"))
	paths, err := merkle.MakeRandomPathsForTesting(depth, n+c.Int("proofs"))
	if err != nil {
		return err
	}
	present, absent := paths[:n], paths[n:]

	var r *benchResult
	if cfg.Summed {
		tree, err := merkle.NewSparseMerkleSumTree(cfg)
		if err != nil {
			return err
		}
		leaves, err := merkle.MakeRandomSumLeavesForTesting(n, 1<<20)
		if err != nil {
			return err
		}
		r, err = runBench(ctx, c, tree, present, absent, leaves)
		if err != nil {
			return err
		}
	} else {
		tree, err := merkle.NewSparseMerkleTree(cfg)
		if err != nil {
			return err
		}
		leaves, err := merkle.MakeRandomLeavesForTesting(n)
		if err != nil {
			return err
		}
		r, err = runBench(ctx, c, tree, present, absent, leaves)
		if err != nil {
			return err
		}
	}

	fmt.Printf("%s, %d leaves of depth %d\n", cfg, n, depth)
	fmt.Printf("insert   %10.3f ms\n", toMs(r.insert))
	fmt.Printf("finalize %10.3f ms\n", toMs(r.finalize))
	fmt.Printf("refinal  %10.3f ms (after %d more leaves)\n", toMs(r.refinalize), r.extra)
	fmt.Printf("prove    %10.3f ms for %d keys, avg %d steps\n", toMs(r.prove), r.proofs, r.avgSteps)
	fmt.Printf("verify   %10.3f ms for %d keys\n", toMs(r.verify), r.proofs)
	fmt.Printf("root     %v\n", r.root)
	return nil
}

type benchResult struct {
	insert, finalize, refinalize, prove, verify time.Duration
	extra, proofs, avgSteps                     int
	root                                        datahash.DataHash
}

func runBench[V merkle.Value](ctx logger.ContextInterface, c *cli.Context, tree *merkle.Tree[V],
	present, absent []*big.Int, leaves []V) (*benchResult, error) {
	var res benchResult

	// hold back a few leaves to measure incremental finalization
	extra := len(present) / 100
	if extra == 0 && len(present) > 1 {
		extra = 1
	}
	res.extra = extra
	first := present[:len(present)-extra]

	start := time.Now()
	for i, p := range first {
		if err := tree.AddLeaf(ctx, p, leaves[i]); err != nil {
			return nil, err
		}
	}
	res.insert = time.Since(start)

	start = time.Now()
	if _, err := tree.CalculateRoot(ctx); err != nil {
		return nil, err
	}
	res.finalize = time.Since(start)

	for i := len(first); i < len(present); i++ {
		if err := tree.AddLeaf(ctx, present[i], leaves[i]); err != nil {
			return nil, err
		}
	}
	start = time.Now()
	root, err := tree.CalculateRoot(ctx)
	if err != nil {
		return nil, err
	}
	res.refinalize = time.Since(start)
	res.root = root.RootHash()

	cache, err := merkle.NewPathCache(c.Int("cache"))
	if err != nil {
		return nil, err
	}
	sample := present
	if len(sample) > len(absent) {
		sample = sample[:len(absent)]
	}
	keys := append(append([]*big.Int{}, sample...), absent...)

	paths := make([]*merkle.Path, len(keys))
	steps := 0
	start = time.Now()
	for i, k := range keys {
		if paths[i], err = cache.GetPath(root, k); err != nil {
			return nil, err
		}
		steps += len(paths[i].Steps)
	}
	res.prove = time.Since(start)
	res.proofs = len(keys)
	if len(keys) > 0 {
		res.avgSteps = steps / len(keys)
	}

	start = time.Now()
	for i, k := range keys {
		v, err := paths[i].Verify(k)
		if err != nil {
			return nil, err
		}
		if !v.PathValid || v.PathIncluded != (i < len(sample)) {
			return nil, fmt.Errorf("bad proof for %x: %+v", k, v)
		}
	}
	res.verify = time.Since(start)
	ctx.Info("bench: checked %d proofs against %v", len(keys), res.root)
	return &res, nil
}

// prove builds a tree out of --leaf flags and prints the proof for --key.
func prove(c *cli.Context) error {
	ctx := newLoggerContext(c)
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	key, ok := new(big.Int).SetString(c.String("key"), 0)
	if !ok {
		return fmt.Errorf("bad key %q", c.String("key"))
	}

	var path *merkle.Path
	if cfg.Summed {
		tree, err := merkle.NewSparseMerkleSumTree(cfg)
		if err != nil {
			return err
		}
		path, err = proveWith(ctx, c, tree, key, func(data []byte, counter *big.Int) merkle.SumLeaf {
			if counter == nil {
				counter = new(big.Int)
			}
			return merkle.NewSumLeaf(data, counter)
		})
		if err != nil {
			return err
		}
	} else {
		tree, err := merkle.NewSparseMerkleTree(cfg)
		if err != nil {
			return err
		}
		path, err = proveWith(ctx, c, tree, key, func(data []byte, _ *big.Int) merkle.Leaf {
			return merkle.NewLeaf(data)
		})
		if err != nil {
			return err
		}
	}

	res, err := path.Verify(key)
	if err != nil {
		return err
	}
	fmt.Println(path)
	if c.Bool("dump") {
		spew.Dump(path)
	}
	fmt.Printf("valid=%v included=%v\n", res.PathValid, res.PathIncluded)
	return nil
}

func proveWith[V merkle.Value](ctx logger.ContextInterface, c *cli.Context, tree *merkle.Tree[V], key *big.Int,
	mk func([]byte, *big.Int) V) (*merkle.Path, error) {
	for _, s := range c.StringSlice("leaf") {
		k, data, counter, err := leafFlag(s, tree.Config().Summed)
		if err != nil {
			return nil, err
		}
		if err := tree.AddLeaf(ctx, k, mk(data, counter)); err != nil {
			return nil, err
		}
	}
	root, err := tree.CalculateRoot(ctx)
	if err != nil {
		return nil, err
	}
	return root.GetPath(key)
}

func mainInner() error {
	common := []cli.Flag{
		&cli.StringFlag{Name: "alg", Value: "SHA256", Usage: "hash algorithm: SHA256, SHA224, SHA384, SHA512, RIPEMD160"},
		&cli.BoolFlag{Name: "sum", Usage: "build a sum tree"},
		&cli.BoolFlag{Name: "debug", Usage: "log at debug level"},
		&cli.StringFlag{Name: "log-style", Value: "default", Usage: "fancy, plain, file or default"},
		&cli.StringFlag{Name: "log-file", Usage: "append logs to this file instead of stderr"},
	}
	app := &cli.App{
		Name:  "smt",
		Usage: "build sparse Merkle (sum) trees and check their proofs",
		Commands: []*cli.Command{
			{
				Name:   "bench",
				Usage:  "time insertion, finalization, proving and verification on random data",
				Action: bench,
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "leaves", Value: 10000},
					&cli.IntFlag{Name: "bits", Value: 256, Usage: "decisions per key"},
					&cli.IntFlag{Name: "proofs", Value: 1000, Usage: "absent keys to prove, and as many present ones"},
					&cli.IntFlag{Name: "cache", Value: 4096, Usage: "path cache entries"},
					&cli.StringFlag{Name: "cpuprofile", Usage: "cpu profile file"},
				}, common...),
			},
			{
				Name:   "prove",
				Usage:  "build a tree from --leaf KEY=DATA flags (KEY=DATA:COUNTER with --sum) and prove --key",
				Action: prove,
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "leaf"},
					&cli.StringFlag{Name: "key", Required: true},
					&cli.BoolFlag{Name: "dump", Usage: "dump the proof structure"},
				}, common...),
			},
		},
	}
	return app.RunContext(context.Background(), os.Args)
}

func main() {
	err := mainInner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
