package merkle

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/unicitylabs/mtree/datahash"
	"github.com/unicitylabs/mtree/logger"

	"github.com/stretchr/testify/require"
)

func NewLoggerContextTodoForTesting(t *testing.T) logger.ContextInterface {
	return logger.NewContext(context.TODO(), logger.NewTestLogger(t))
}

func newPlainTreeForTest(t *testing.T) *Tree[Leaf] {
	cfg, err := NewConfig(datahash.SHA256, false)
	require.NoError(t, err)
	tree, err := NewSparseMerkleTree(cfg)
	require.NoError(t, err)
	return tree
}

func newSumTreeForTest(t *testing.T) *Tree[SumLeaf] {
	cfg, err := NewConfig(datahash.SHA256, true)
	require.NoError(t, err)
	tree, err := NewSparseMerkleSumTree(cfg)
	require.NoError(t, err)
	return tree
}

func requireIntEqual(t *testing.T, expected int64, actual *big.Int) {
	t.Helper()
	require.NotNil(t, actual)
	require.Equal(t, 0, big.NewInt(expected).Cmp(actual), "expected %d, got %v", expected, actual)
}

func requireVerifies(t *testing.T, p Prover, key *big.Int, included bool) *Path {
	t.Helper()
	path, err := p.GetPath(key)
	require.NoError(t, err)
	res, err := path.Verify(key)
	require.NoError(t, err)
	require.True(t, res.PathValid, "key %b: %v", key, path)
	require.Equal(t, included, res.PathIncluded, "key %b: %v", key, path)
	return path
}

// shape renders the structure of a subtree with binary paths.
func shape[V Value](b *branch[V]) string {
	if b == nil {
		return "nil"
	}
	if b.isLeaf() {
		return fmt.Sprintf("L%b", b.path)
	}
	return fmt.Sprintf("N%b(%s,%s)", b.path, shape(b.left), shape(b.right))
}

type keyValue struct {
	key   int64
	value string
}

var nineLeaves = []keyValue{
	{0b110010000, "value00010000"},
	{0b100000000, "value00000000"},
	{0b100010000, "value00010000"},
	{0b111100101, "value11100101"},
	{0b1100, "value100"},
	{0b1011, "value011"},
	{0b111101111, "value11101111"},
	{0b10001010, "value0001010"},
	{0b11010101, "value1010101"},
}

func TestSumTreeTwoLeaves(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newSumTreeForTest(t)

	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b101), NewSumLeaf([]byte("a"), big.NewInt(3))))

	// 0b11 is on the route to 0b101
	err := tree.AddLeaf(ctx, big.NewInt(0b11), NewSumLeaf([]byte("b"), big.NewInt(7)))
	var bee BranchExistsError
	require.True(t, errors.As(err, &bee), "%v", err)

	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b111), NewSumLeaf([]byte("b"), big.NewInt(7))))

	root, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	requireIntEqual(t, 10, root.Counter())
	require.Equal(t, "000066e473c51214cf7c523acb2a512246dd2d8a9d8e88e32a797feb80dbed1ee50f",
		hex.EncodeToString(root.RootHash().Imprint()))
	require.Equal(t, "N11(L10,L11)", shape(tree.right))
	require.Nil(t, tree.left)

	path := requireVerifies(t, root, big.NewInt(5), true)
	require.Len(t, path.Steps, 2)
	require.Equal(t, []byte("a"), path.Steps[0].Branch.Value)
	requireIntEqual(t, 3, path.Steps[0].Branch.Counter)
	requireIntEqual(t, 10, path.Root.Counter)

	requireVerifies(t, root, big.NewInt(7), true)
	// 6 was never inserted and its slot is empty
	path = requireVerifies(t, root, big.NewInt(6), false)
	require.Len(t, path.Steps, 1)
	require.Nil(t, path.Steps[0].Branch)
	requireIntEqual(t, 0b10, path.Steps[0].Path)
}

func TestPlainTreeKnownRoots(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)

	empty := newPlainTreeForTest(t)
	root, err := empty.CalculateRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, "0000d31d2028e8db051133333a682c0a09684ffd505a6ae2c668d8b61367143f74d9",
		hex.EncodeToString(root.RootHash().Imprint()))
	require.Nil(t, root.Counter())

	single := newPlainTreeForTest(t)
	require.NoError(t, single.AddLeaf(ctx, big.NewInt(0b100), NewLeaf([]byte("a"))))
	root, err = single.CalculateRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, "000074a60e2bc6c4aca5c8726a1d0790915f8aa4e7f337560fb2ba7c60d36efe38f6",
		hex.EncodeToString(root.RootHash().Imprint()))

	two := newPlainTreeForTest(t)
	require.NoError(t, two.AddLeaf(ctx, big.NewInt(0b10), NewLeaf([]byte{1, 2, 3})))
	require.NoError(t, two.AddLeaf(ctx, big.NewInt(0b11), NewLeaf([]byte{1, 2, 3, 4})))
	root, err = two.CalculateRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, "000024db5ca019aabb9cb6be562f9b914e485bc34995357cac48c3a677c34cb9e832",
		hex.EncodeToString(root.RootHash().Imprint()))
}

func TestEmptySumTree(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newSumTreeForTest(t)
	root, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	requireIntEqual(t, 0, root.Counter())
	requireVerifies(t, root, big.NewInt(0b10), false)
	requireVerifies(t, root, big.NewInt(0b111), false)
}

func TestTreeStructure(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newPlainTreeForTest(t)
	for _, kv := range nineLeaves {
		require.NoError(t, tree.AddLeaf(ctx, big.NewInt(kv.key), NewLeaf([]byte(kv.value))))
	}

	require.Equal(t, "N10(N10(N100(L10000,N1001(L10,L11)),L11),L1000101)", shape(tree.left))
	require.Equal(t, "N11(N1010(L11110,L1101),N11(L10,L1111011))", shape(tree.right))

	err := tree.AddLeaf(ctx, big.NewInt(0b10000000), NewLeaf([]byte("OnPath")))
	var bee BranchExistsError
	require.True(t, errors.As(err, &bee), "%v", err)
	requireIntEqual(t, 0b10000000, bee.Path)

	err = tree.AddLeaf(ctx, big.NewInt(0b1000000000), NewLeaf([]byte("ThroughLeaf")))
	var loob LeafOutOfBoundsError
	require.True(t, errors.As(err, &loob), "%v", err)
	requireIntEqual(t, 0b1000000000, loob.Path)

	// collisions deeper down report the whole key too
	err = tree.AddLeaf(ctx, big.NewInt(0b110000), NewLeaf([]byte("Prefix")))
	require.True(t, errors.As(err, &bee), "%v", err)
	requireIntEqual(t, 0b110000, bee.Path)

	root, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, "0000027552ac136703c2786017a68ecb884b6090f0da9869f2a6ca2d412d19707319",
		hex.EncodeToString(root.RootHash().Imprint()))

	for _, kv := range nineLeaves {
		path := requireVerifies(t, root, big.NewInt(kv.key), true)
		require.Equal(t, []byte(kv.value), path.Steps[0].Branch.Value)
		require.Nil(t, path.Steps[0].Branch.Counter)
	}
	for _, k := range []int64{0b11010, 0b10000000, 0b1000000000, 0b1, 0b10, 0b11, 0b100} {
		requireVerifies(t, root, big.NewInt(k), false)
	}
}

func TestInsertionOrderDoesNotMatter(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	var want datahash.DataHash
	kvs := append([]keyValue{}, nineLeaves...)
	for i := 0; i < 10; i++ {
		rand.Shuffle(len(kvs), func(a, b int) { kvs[a], kvs[b] = kvs[b], kvs[a] })
		tree := newPlainTreeForTest(t)
		for _, kv := range kvs {
			require.NoError(t, tree.AddLeaf(ctx, big.NewInt(kv.key), NewLeaf([]byte(kv.value))))
		}
		root, err := tree.CalculateRoot(ctx)
		require.NoError(t, err)
		if i == 0 {
			want = root.RootHash()
			continue
		}
		require.True(t, want.Equal(root.RootHash()))
	}
}

func TestCollisions(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newSumTreeForTest(t)
	leaf := NewSumLeaf([]byte("x"), big.NewInt(1))

	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b1001), leaf))
	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b1101), leaf))
	// tree.right is now N101(L10,L11)

	cases := []struct {
		key     int64
		exists  bool
		outside bool
	}{
		{0b101, true, false},    // the internal node itself
		{0b1001, true, false},   // an existing leaf
		{0b1, true, false},      // the root decision only
		{0b11001, false, true},  // below the leaf at 0b1001
		{0b110101, false, true}, // below the leaf at 0b1101
		{0b111, false, false},   // a free sibling: succeeds
	}
	for _, c := range cases {
		err := tree.AddLeaf(ctx, big.NewInt(c.key), leaf)
		switch {
		case c.exists:
			var e BranchExistsError
			require.True(t, errors.As(err, &e), "%b: %v", c.key, err)
		case c.outside:
			var e LeafOutOfBoundsError
			require.True(t, errors.As(err, &e), "%b: %v", c.key, err)
		default:
			require.NoError(t, err, "%b", c.key)
		}
	}
}

func TestFailedInsertLeavesTreeUnchanged(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newPlainTreeForTest(t)
	for _, kv := range nineLeaves {
		require.NoError(t, tree.AddLeaf(ctx, big.NewInt(kv.key), NewLeaf([]byte(kv.value))))
	}
	root1, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	left, right := tree.left, tree.right

	require.Error(t, tree.AddLeaf(ctx, big.NewInt(0b10000000), NewLeaf([]byte("OnPath"))))
	require.Error(t, tree.AddLeaf(ctx, big.NewInt(0b1000000000), NewLeaf([]byte("ThroughLeaf"))))
	require.Same(t, left, tree.left)
	require.Same(t, right, tree.right)

	root2, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	require.True(t, root1.RootHash().Equal(root2.RootHash()))
}

func TestInvalidArguments(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	sum := newSumTreeForTest(t)
	plain := newPlainTreeForTest(t)

	checkInvalid := func(err error) {
		t.Helper()
		var e InvalidArgumentError
		require.True(t, errors.As(err, &e), "%v", err)
	}

	checkInvalid(sum.AddLeaf(ctx, nil, NewSumLeaf([]byte{1}, big.NewInt(1))))
	checkInvalid(sum.AddLeaf(ctx, big.NewInt(0), NewSumLeaf([]byte{1}, big.NewInt(1))))
	checkInvalid(sum.AddLeaf(ctx, big.NewInt(-1), NewSumLeaf([]byte{1}, big.NewInt(1))))
	checkInvalid(sum.AddLeaf(ctx, big.NewInt(1), NewSumLeaf([]byte{1}, big.NewInt(-1))))
	checkInvalid(sum.AddLeaf(ctx, big.NewInt(1), NewSumLeaf([]byte{1}, nil)))
	checkInvalid(sum.AddLeaf(ctx, big.NewInt(1), NewSumLeaf(nil, big.NewInt(1))))
	checkInvalid(plain.AddLeaf(ctx, big.NewInt(2), NewLeaf(nil)))
	checkInvalid(plain.AddLeaf(ctx, big.NewInt(2), Leaf{}))

	require.Nil(t, sum.left)
	require.Nil(t, sum.right)

	// an empty payload is fine
	require.NoError(t, plain.AddLeaf(ctx, big.NewInt(2), NewLeaf([]byte{})))
	require.NoError(t, sum.AddLeaf(ctx, big.NewInt(2), NewSumLeaf([]byte{}, big.NewInt(0))))

	root, err := plain.CalculateRoot(ctx)
	require.NoError(t, err)
	_, err = root.GetPath(big.NewInt(0))
	checkInvalid(err)
	_, err = root.GetPath(nil)
	checkInvalid(err)
	requireVerifies(t, root, big.NewInt(2), true)
}

func TestConfigs(t *testing.T) {
	_, err := NewConfig(datahash.Algorithm(99), false)
	require.IsType(t, InvalidConfigError{}, err)

	summed, err := NewConfig(datahash.SHA256, true)
	require.NoError(t, err)
	plain, err := NewConfig(datahash.SHA256, false)
	require.NoError(t, err)

	_, err = NewSparseMerkleTree(summed)
	require.IsType(t, InvalidConfigError{}, err)
	_, err = NewSparseMerkleSumTree(plain)
	require.IsType(t, InvalidConfigError{}, err)
	_, err = NewSparseMerkleTree(Config{Algorithm: datahash.Algorithm(7)})
	require.IsType(t, InvalidConfigError{}, err)
}

func TestAllAlgorithms(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	for _, alg := range datahash.Algorithms() {
		cfg, err := NewConfig(alg, true)
		require.NoError(t, err)
		tree, err := NewSparseMerkleSumTree(cfg)
		require.NoError(t, err)
		for i, kv := range nineLeaves {
			require.NoError(t, tree.AddLeaf(ctx, big.NewInt(kv.key), NewSumLeaf([]byte(kv.value), big.NewInt(int64(i)))))
		}
		root, err := tree.CalculateRoot(ctx)
		require.NoError(t, err)
		require.Equal(t, alg, root.RootHash().Algorithm())
		require.Len(t, root.RootHash().Data(), alg.Size())
		requireIntEqual(t, 36, root.Counter())
		for _, kv := range nineLeaves {
			requireVerifies(t, root, big.NewInt(kv.key), true)
		}
	}
}

func TestHalfCalculatedTree(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newPlainTreeForTest(t)

	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b10), NewLeaf([]byte{1, 2, 3})))
	_, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b11), NewLeaf([]byte{1, 2, 3, 4})))

	require.Equal(t, finalizedLeaf, tree.left.kind)
	require.Equal(t, pendingLeaf, tree.right.kind)
	require.False(t, tree.right.isFinalized())
}

func TestIdempotentFinalize(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newSumTreeForTest(t)
	for i, kv := range nineLeaves {
		require.NoError(t, tree.AddLeaf(ctx, big.NewInt(kv.key), NewSumLeaf([]byte(kv.value), big.NewInt(int64(i)))))
	}
	root1, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	root2, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)

	require.True(t, root1.RootHash().Equal(root2.RootHash()))
	require.Same(t, root1.left, root2.left)
	require.Same(t, root1.right, root2.right)

	again, err := root1.left.finalize(tree.Config())
	require.NoError(t, err)
	require.Same(t, root1.left, again)
}

func TestStructuralSharing(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newSumTreeForTest(t)

	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b1000), NewSumLeaf([]byte("a"), big.NewInt(1))))
	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b1100), NewSumLeaf([]byte("b"), big.NewInt(2))))
	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b1011), NewSumLeaf([]byte("c"), big.NewInt(3))))
	root1, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	old := requireVerifies(t, root1, big.NewInt(0b1011), true)

	// only the right slot changes
	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b1111), NewSumLeaf([]byte("d"), big.NewInt(4))))
	root2, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)

	require.False(t, root1.RootHash().Equal(root2.RootHash()))
	requireIntEqual(t, 6, root1.Counter())
	requireIntEqual(t, 10, root2.Counter())
	require.Same(t, root1.left, root2.left)
	require.NotSame(t, root1.right, root2.right)

	// the old snapshot and its proofs are untouched
	res, err := old.Verify(big.NewInt(0b1011))
	require.NoError(t, err)
	require.True(t, res.IsSuccessful())
	requireVerifies(t, root1, big.NewInt(0b1011), true)
	requireVerifies(t, root1, big.NewInt(0b1111), false)
	requireVerifies(t, root2, big.NewInt(0b1111), true)

	// an old proof does not verify against the new root
	old.Root = Root{Hash: root2.RootHash(), Counter: root2.Counter()}
	res, err = old.Verify(big.NewInt(0b1011))
	require.NoError(t, err)
	require.False(t, res.PathValid)
}

func TestRandomRoundTrip(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	r := rand.New(rand.NewSource(42))

	for trial := 0; trial < 40; trial++ {
		tree := newSumTreeForTest(t)
		included := map[int64]bool{}
		total := int64(0)
		n := r.Intn(16)
		for i := 0; i < n; i++ {
			k := 1 + r.Int63n(255)
			c := r.Int63n(100)
			err := tree.AddLeaf(ctx, big.NewInt(k), NewSumLeaf([]byte{byte(k)}, big.NewInt(c)))
			if err != nil {
				var bee BranchExistsError
				var loob LeafOutOfBoundsError
				require.True(t, errors.As(err, &bee) || errors.As(err, &loob), "%v", err)
				continue
			}
			included[k] = true
			total += c
		}
		root, err := tree.CalculateRoot(ctx)
		require.NoError(t, err)
		requireIntEqual(t, total, root.Counter())

		for q := int64(1); q < 300; q++ {
			requireVerifies(t, root, big.NewInt(q), included[q])
		}
	}
}

func TestLargeSumTree(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newSumTreeForTest(t)

	paths, err := MakeRandomPathsForTesting(256, 300)
	require.NoError(t, err)
	leaves, err := MakeRandomSumLeavesForTesting(len(paths), 1000)
	require.NoError(t, err)

	total := new(big.Int)
	for i, p := range paths {
		require.NoError(t, tree.AddLeaf(ctx, p, leaves[i]))
		total.Add(total, leaves[i].Counter())
	}
	root, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, total.Cmp(root.Counter()))

	for i, p := range paths {
		path := requireVerifies(t, root, p, true)
		require.Equal(t, leaves[i].Data(), path.Steps[0].Branch.Value)
		require.Equal(t, 0, leaves[i].Counter().Cmp(path.Steps[0].Branch.Counter))
	}

	absent, err := MakeRandomPathsForTesting(256, 50)
	require.NoError(t, err)
	for _, p := range absent {
		requireVerifies(t, root, p, false)
	}
}

func TestConcurrentAddLeaf(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newPlainTreeForTest(t)

	paths, err := MakeRandomPathsForTesting(64, 200)
	require.NoError(t, err)
	leaves, err := MakeRandomLeavesForTesting(len(paths))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, len(paths))
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- tree.AddLeaf(ctx, paths[i], leaves[i])
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	root, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)
	for _, p := range paths {
		requireVerifies(t, root, p, true)
	}
}

func TestLeafPayloadIsCopied(t *testing.T) {
	data := []byte("abc")
	l := NewSumLeaf(data, big.NewInt(5))
	data[0] = 'z'
	require.Equal(t, []byte("abc"), l.Data())

	c := big.NewInt(5)
	l = NewSumLeaf(data, c)
	c.SetInt64(6)
	requireIntEqual(t, 5, l.Counter())

	require.Nil(t, NewLeaf([]byte("a")).Counter())

	l.Data()[0] = 'y'
	l.Counter().SetInt64(7)
	require.Equal(t, []byte("abc"), l.Data())
	requireIntEqual(t, 5, l.Counter())
}

func TestSnapshotSurvivesPayloadMutation(t *testing.T) {
	ctx := NewLoggerContextTodoForTesting(t)
	tree := newPlainTreeForTest(t)
	l := NewLeaf([]byte("abc"))
	require.NoError(t, tree.AddLeaf(ctx, big.NewInt(0b101), l))
	root, err := tree.CalculateRoot(ctx)
	require.NoError(t, err)

	l.Data()[0] = 'z'
	path := requireVerifies(t, root, big.NewInt(0b101), true)
	require.Equal(t, []byte("abc"), path.Steps[0].Branch.Value)

	path.Steps[0].Branch.Value[0] = 'z'
	path = requireVerifies(t, root, big.NewInt(0b101), true)
	require.Equal(t, []byte("abc"), path.Steps[0].Branch.Value)
}
