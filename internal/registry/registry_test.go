package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/response"
)

func noopHandler(ctx context.Context, req *capability.Request) (response.Result, error) {
	return response.OK(nil), nil
}

func tagMiddleware(tag string, trail *[]string) capability.Middleware {
	return func(ctx context.Context, req *capability.Request) error {
		*trail = append(*trail, tag)
		return nil
	}
}

func schoolModule() capability.Module {
	return capability.Module{
		Name:    "school",
		Exposed: []string{"post=createSchool", "get=listSchools", "GET=getSchool"},
		Functions: map[string]capability.Handler{
			"createSchool": noopHandler,
			"listSchools":  noopHandler,
			"getSchool":    noopHandler,
			"helper":       noopHandler,
		},
	}
}

// ============================================================================
// Descriptor parsing
// ============================================================================

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name     string
		entry    string
		expected Descriptor
		err      error
	}{
		{"simple", "post=createSchool", Descriptor{"school", "post", "createSchool"}, nil},
		{"upper-case verb", "PATCH=transferStudent", Descriptor{"school", "patch", "transferStudent"}, nil},
		{"surrounding spaces", " get = listSchools ", Descriptor{"school", "get", "listSchools"}, nil},
		{"missing separator", "createSchool", Descriptor{}, ErrMissingSeparator},
		{"unknown verb", "fetch=listSchools", Descriptor{}, ErrUnknownVerb},
		{"empty verb", "=listSchools", Descriptor{}, ErrUnknownVerb},
		{"empty function", "get=", Descriptor{}, ErrEmptyFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDescriptor("school", tt.entry)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

// ============================================================================
// Build validation
// ============================================================================

func TestBuild_RejectsMalformedDeclarations(t *testing.T) {
	tests := []struct {
		name    string
		modules []capability.Module
		err     error
	}{
		{
			name: "missing separator",
			modules: []capability.Module{{
				Name: "school", Exposed: []string{"createSchool"},
				Functions: map[string]capability.Handler{"createSchool": noopHandler},
			}},
			err: ErrMissingSeparator,
		},
		{
			name: "dangling function",
			modules: []capability.Module{{
				Name: "school", Exposed: []string{"post=createSchool", "delete=dropSchool"},
				Functions: map[string]capability.Handler{"createSchool": noopHandler},
			}},
			err: ErrDanglingFunction,
		},
		{
			name: "nil handler",
			modules: []capability.Module{{
				Name: "school", Exposed: []string{"post=createSchool"},
				Functions: map[string]capability.Handler{"createSchool": nil},
			}},
			err: ErrNilHandlerOrGuard,
		},
		{
			name: "duplicate entry",
			modules: []capability.Module{{
				Name: "school", Exposed: []string{"post=createSchool", "POST=createSchool"},
				Functions: map[string]capability.Handler{"createSchool": noopHandler},
			}},
			err: ErrDuplicateEntry,
		},
		{
			name:    "duplicate module",
			modules: []capability.Module{schoolModule(), schoolModule()},
			err:     ErrDuplicateModule,
		},
		{
			name: "empty module name",
			modules: []capability.Module{{
				Exposed:   []string{"post=createSchool"},
				Functions: map[string]capability.Handler{"createSchool": noopHandler},
			}},
			err: ErrEmptyModuleName,
		},
		{
			name: "middleware for unexposed function",
			modules: []capability.Module{{
				Name: "school", Exposed: []string{"post=createSchool"},
				Functions: map[string]capability.Handler{"createSchool": noopHandler, "helper": noopHandler},
				Middlewares: map[string][]capability.Middleware{
					"helper": {func(ctx context.Context, req *capability.Request) error { return nil }},
				},
			}},
			err: ErrDanglingGuard,
		},
		{
			name: "nil middleware",
			modules: []capability.Module{{
				Name: "school", Exposed: []string{"post=createSchool"},
				Functions:   map[string]capability.Handler{"createSchool": noopHandler},
				Middlewares: map[string][]capability.Middleware{"createSchool": {nil}},
			}},
			err: ErrNilHandlerOrGuard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Build(nil, tt.modules...)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBuild_RejectsNilGlobal(t *testing.T) {
	_, err := Build([]capability.Middleware{nil}, schoolModule())
	assert.ErrorIs(t, err, ErrNilHandlerOrGuard)
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustBuild(nil, capability.Module{Name: "x", Exposed: []string{"nope"}})
	})
}

// ============================================================================
// Resolve
// ============================================================================

func TestResolve(t *testing.T) {
	r, err := Build(nil, schoolModule())
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"school"}, r.Modules())
	assert.Len(t, r.Descriptors(), 3)

	tests := []struct {
		name     string
		module   string
		verb     string
		function string
		found    bool
	}{
		{"exact match", "school", "post", "createSchool", true},
		{"verb case-insensitive", "school", "POST", "createSchool", true},
		{"declared upper-case verb", "school", "get", "getSchool", true},
		{"wrong verb", "school", "get", "createSchool", false},
		{"defined but unexposed function", "school", "get", "helper", false},
		{"unknown module", "ghostModule", "get", "ghostFn", false},
		{"module name is case-sensitive", "School", "post", "createSchool", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := r.Resolve(tt.module, tt.verb, tt.function)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotNil(t, e)
				assert.Equal(t, tt.function, e.Descriptor.Function)
			} else {
				assert.Nil(t, e)
			}
		})
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	r := MustBuild(nil, schoolModule())

	first, ok := r.Resolve("school", "get", "listSchools")
	require.True(t, ok)
	second, ok := r.Resolve("school", "get", "listSchools")
	require.True(t, ok)

	assert.Same(t, first, second)
}

func TestBuild_ChainOrder(t *testing.T) {
	var trail []string
	globals := []capability.Middleware{tagMiddleware("token", &trail), tagMiddleware("device", &trail)}

	m := schoolModule()
	m.Middlewares = map[string][]capability.Middleware{
		"createSchool": {tagMiddleware("gate", &trail), tagMiddleware("audit", &trail)},
	}
	r := MustBuild(globals, m)

	e, ok := r.Resolve("school", "post", "createSchool")
	require.True(t, ok)
	assert.Equal(t, 2, e.Globals)
	assert.Len(t, e.GlobalChain(), 2)
	assert.Len(t, e.PerEntry(), 2)

	for _, mw := range e.Chain {
		require.NoError(t, mw(context.Background(), &capability.Request{}))
	}
	assert.Equal(t, []string{"token", "device", "gate", "audit"}, trail)

	plain, ok := r.Resolve("school", "get", "listSchools")
	require.True(t, ok)
	assert.Len(t, plain.Chain, 2)
	assert.Empty(t, plain.PerEntry())
}
