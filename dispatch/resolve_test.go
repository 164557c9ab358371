package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routewire/go-routetable/artifact"
	"github.com/routewire/go-routetable/compiler"
)

func mustLoad(t *testing.T, m compiler.Manifest, opts ...compiler.Option) *Table {
	t.Helper()
	data, err := compiler.Compile(m, opts...)
	require.NoError(t, err)
	table, err := Load(data)
	require.NoError(t, err)
	return table
}

func TestResolveRoundTrip(t *testing.T) {
	m := compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/", Meta: []byte("root")},
		{Method: artifact.MethodGET, Pattern: "/categories", Meta: []byte("cats")},
		{Method: artifact.MethodGET, Pattern: "/categories/search", Meta: []byte("search")},
		{Method: artifact.MethodGET, Pattern: "/categories/{cid}/products/{pid}", Meta: []byte("product")},
		{Method: artifact.MethodPOST, Pattern: "/categories", Meta: []byte("create")},
		{Method: artifact.MethodDELETE, Pattern: "/categories/{cid}", Meta: []byte("delete")},
	}
	table := mustLoad(t, m)

	for _, r := range m {
		path := exactPath(r.Pattern)
		res, err := table.Resolve(r.Method, path)
		require.NoError(t, err, "%s %s", r.Method, path)
		require.Equal(t, r.Meta, res.Meta, "%s %s", r.Method, path)
	}
}

// exactPath substitutes a fixed value for each parameter so every manifest
// pattern has a concrete resolvable path.
func exactPath(pattern string) string {
	out := make([]byte, 0, len(pattern))
	inParam := false
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			inParam = true
			out = append(out, 'x')
		case '}':
			inParam = false
		default:
			if !inParam {
				out = append(out, pattern[i])
			}
		}
	}
	return string(out)
}

func TestStaticBeforeParameterPrecedence(t *testing.T) {
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/categories/search", Meta: []byte("literal")},
		{Method: artifact.MethodGET, Pattern: "/categories/{cid}", Meta: []byte("param")},
	})

	res, err := table.Resolve(artifact.MethodGET, "/categories/search")
	require.NoError(t, err)
	require.Equal(t, []byte("literal"), res.Meta)
	require.Nil(t, res.Params)

	res, err = table.Resolve(artifact.MethodGET, "/categories/42")
	require.NoError(t, err)
	require.Equal(t, []byte("param"), res.Meta)
	require.Equal(t, map[string]string{"cid": "42"}, res.Params)
}

func TestParameterBinding(t *testing.T) {
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/categories/{cid}/products/{pid}", Meta: []byte("p")},
	})

	res, err := table.Resolve(artifact.MethodGET, "/categories/100/products/abc")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"cid": "100", "pid": "abc"}, res.Params)
}

func TestResolveUnknownPath(t *testing.T) {
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/categories/search", Meta: []byte("s")},
	})

	_, err := table.Resolve(artifact.MethodGET, "/nonexistent/path")
	require.ErrorIs(t, err, ErrNoRoute)

	// A longer path under a registered route.
	_, err = table.Resolve(artifact.MethodGET, "/categories/search/deeper")
	require.ErrorIs(t, err, ErrNoRoute)

	// A registered path under the wrong method.
	_, err = table.Resolve(artifact.MethodPUT, "/categories/search")
	require.ErrorIs(t, err, ErrNoRoute)

	// An invalid method code is a miss, not a fault.
	_, err = table.Resolve(artifact.Method(0), "/categories/search")
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestResolveIntermediateNodeWithoutHandler(t *testing.T) {
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/categories/search", Meta: []byte("s")},
	})

	// /categories exists structurally but has no handler bound.
	_, err := table.Resolve(artifact.MethodGET, "/categories")
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestResolveNormalizesSlashes(t *testing.T) {
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/users", Meta: []byte("u")},
		{Method: artifact.MethodGET, Pattern: "/", Meta: []byte("root")},
	})

	for _, path := range []string{"/users", "/users/", "//users", "/users//"} {
		res, err := table.Resolve(artifact.MethodGET, path)
		require.NoError(t, err, path)
		require.Equal(t, []byte("u"), res.Meta, path)
	}

	for _, path := range []string{"/", "", "//"} {
		res, err := table.Resolve(artifact.MethodGET, path)
		require.NoError(t, err, path)
		require.Equal(t, []byte("root"), res.Meta, path)
	}
}

func TestResolveParamAfterLiteralMiss(t *testing.T) {
	// Greedy matching: literals are preferred at each position and there is
	// no backtracking into the parameter child.
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/files/named", Meta: []byte("named")},
		{Method: artifact.MethodGET, Pattern: "/files/{id}/raw", Meta: []byte("raw")},
	})

	res, err := table.Resolve(artifact.MethodGET, "/files/7/raw")
	require.NoError(t, err)
	require.Equal(t, []byte("raw"), res.Meta)
	require.Equal(t, map[string]string{"id": "7"}, res.Params)

	_, err = table.Resolve(artifact.MethodGET, "/files/named/raw")
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestResolveDeepCompressedChain(t *testing.T) {
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/api/v2/internal/metrics/export", Meta: []byte("m")},
	})

	res, err := table.Resolve(artifact.MethodGET, "/api/v2/internal/metrics/export")
	require.NoError(t, err)
	require.Equal(t, []byte("m"), res.Meta)

	// Partial prefixes of the chain have no handler.
	_, err = table.Resolve(artifact.MethodGET, "/api/v2/internal")
	require.ErrorIs(t, err, ErrNoRoute)
	_, err = table.Resolve(artifact.MethodGET, "/api/v2/internal/metrics/export/extra")
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestResolvePrefilterDefiniteMiss(t *testing.T) {
	// All GET routes literal: the prefilter is authoritative and unknown
	// paths are rejected without traversal.
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/health", Meta: []byte("h")},
		{Method: artifact.MethodGET, Pattern: "/version", Meta: []byte("v")},
	}, compiler.WithPrefilterSizing(64, 6))
	require.True(t, table.Header().HasPrefilter())
	require.NotZero(t, table.Header().StaticMethods&artifact.MethodBit(artifact.MethodGET))

	res, err := table.Resolve(artifact.MethodGET, "/health")
	require.NoError(t, err)
	require.Equal(t, []byte("h"), res.Meta)

	_, visits, err := table.resolve(artifact.MethodGET, "/definitely/not/registered")
	require.ErrorIs(t, err, ErrNoRoute)
	require.Zero(t, visits, "prefilter miss should answer without node visits")
}

func TestResolvePrefilterSkippedForParamMethods(t *testing.T) {
	table := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/users/{id}", Meta: []byte("u")},
		{Method: artifact.MethodPOST, Pattern: "/users", Meta: []byte("c")},
	})
	// GET carries a parameter route, so its static bit must be clear.
	require.Zero(t, table.Header().StaticMethods&artifact.MethodBit(artifact.MethodGET))

	res, err := table.Resolve(artifact.MethodGET, "/users/9")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"id": "9"}, res.Params)
}

func TestSwapper(t *testing.T) {
	old := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/a", Meta: []byte("old")},
	})
	next := mustLoad(t, compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/a", Meta: []byte("new")},
	})

	s := NewSwapper(nil)
	_, err := s.Resolve(artifact.MethodGET, "/a")
	require.ErrorIs(t, err, ErrNoTable)

	s.Publish(old)
	res, err := s.Resolve(artifact.MethodGET, "/a")
	require.NoError(t, err)
	require.Equal(t, []byte("old"), res.Meta)

	held := s.Current()
	s.Publish(next)

	res, err = s.Resolve(artifact.MethodGET, "/a")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), res.Meta)

	// A lookup that started before the swap still sees the old table.
	res, err = held.Resolve(artifact.MethodGET, "/a")
	require.NoError(t, err)
	require.Equal(t, []byte("old"), res.Meta)
}
