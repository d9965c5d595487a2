package document

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariants(t *testing.T) {
	t.Parallel()

	m := mustParse(t, `
name: starter
port: "8080"
rps: 2.5
debug: true
nothing: ~
fields: [a, b]
nested:
  list: "__reset__"
  tagged: !reset [1, 2]
`)

	assert.Equal(t, []string{"name", "port", "rps", "debug", "nothing", "fields", "nested"}, m.Keys())

	port, ok := m.Get("port")
	require.True(t, ok)
	assert.Equal(t, String("8080"), port)

	rps, _ := m.Get("rps")
	assert.Equal(t, KindScalar, rps.Kind())
	assert.Equal(t, 2.5, rps.(Scalar).Interface())

	nothing, _ := m.Get("nothing")
	assert.True(t, nothing.(Scalar).IsNull())

	fields, _ := m.Get("fields")
	assert.Equal(t, []string{"a", "b"}, fields.(List).Strings())

	list, ok := m.Lookup("nested", "list")
	require.True(t, ok)
	assert.Equal(t, KindReset, list.Kind())

	tagged, ok := m.Lookup("nested", "tagged")
	require.True(t, ok)
	assert.Equal(t, KindReset, tagged.Kind())
}

func TestParseEmptyDocuments(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"", "# only a comment\n", "~\n", "---\n"} {
		m, err := Parse([]byte(src))
		require.NoError(t, err, "source %q", src)
		assert.Equal(t, 0, m.Len(), "source %q", src)
	}
}

func TestParseAliasesAndMergeKeys(t *testing.T) {
	t.Parallel()

	m := mustParse(t, `
defaults: &defaults
  timeout: 5s
  retries: 3
service:
  <<: *defaults
  retries: 5
patterns: &patterns [/health/**, /metrics]
logging:
  exclude: *patterns
`)

	timeout, ok := m.Lookup("service", "timeout")
	require.True(t, ok)
	assert.Equal(t, String("5s"), timeout)

	retries, _ := m.Lookup("service", "retries")
	assert.Equal(t, 5, retries.(Scalar).Interface())

	exclude, _ := m.Lookup("logging", "exclude")
	assert.Equal(t, []string{"/health/**", "/metrics"}, exclude.(List).Strings())
}

func TestParseFormatErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{name: "RootIsList", src: "- a\n- b\n"},
		{name: "RootIsScalar", src: "just text"},
		{name: "InvalidSyntax", src: "a: [1, 2\n"},
		{name: "DuplicateKey", src: "a: 1\na: 2\n"},
		{name: "ComplexKey", src: "? [a, b]\n: 1\n"},
		{name: "MultipleDocuments", src: "a: 1\n---\nb: 2\n"},
		{name: "MergeKeyScalar", src: "a:\n  <<: 1\n"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseSource("config.test.yaml", []byte(tc.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "config.test.yaml", fe.Source)
			assert.Contains(t, err.Error(), "config.test.yaml")
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	src := mustParse(t, `
app: {name: starter, port: "8080"}
list: []
empty: {}
ratio: 0.5
`)

	data, err := Encode(src)
	require.NoError(t, err)

	again := mustParse(t, string(data))
	assert.Equal(t, src.Interface(), again.Interface())
	assert.Equal(t, src.Keys(), again.Keys())
}

func TestDecodeOntoDefaults(t *testing.T) {
	t.Parallel()

	type server struct {
		Port    string        `yaml:"port"`
		Timeout time.Duration `yaml:"timeout"`
		Tags    []string      `yaml:"tags"`
		Debug   bool          `yaml:"debug"`
	}

	merged := Merge(mustParse(t, "tags: [a]"), mustParse(t, "timeout: 250ms\ntags: __reset__"))
	out := server{Port: "8080", Timeout: time.Second, Tags: []string{"a"}, Debug: true}
	require.NoError(t, merged.Decode(&out))

	assert.Equal(t, "8080", out.Port)
	assert.Equal(t, 250*time.Millisecond, out.Timeout)
	assert.Empty(t, out.Tags)
	assert.True(t, out.Debug)
}

func TestDecodeTypeMismatch(t *testing.T) {
	t.Parallel()

	var out struct {
		Burst int `yaml:"burst"`
	}
	err := mustParse(t, "burst: lots").Decode(&out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestFloatConstructor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "25.0", Float(25).Text)
	assert.Equal(t, "0.5", Float(0.5).Text)
	assert.Equal(t, 25.0, Float(25).Interface())
}

func TestParseRejectsAliasExpansion(t *testing.T) {
	t.Parallel()

	refs := func(anchor string) string {
		return "[" + strings.TrimSuffix(strings.Repeat("*"+anchor+", ", 10), ", ") + "]"
	}

	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "l%d: &l%d %s\n", i, i, refs(fmt.Sprintf("l%d", i-1)))
	}

	_, err := ParseSource("bomb.yaml", []byte(b.String()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
	assert.Contains(t, err.Error(), "excessive aliasing")
	assert.Contains(t, err.Error(), "bomb.yaml")
}

func TestParseAllowsModerateAliasing(t *testing.T) {
	t.Parallel()

	m := mustParse(t, `
base: &base [a, b, c]
one: &one [*base, *base]
two: [*one, *one, *one]
`)
	two, ok := m.Get("two")
	require.True(t, ok)
	assert.Len(t, two.(List), 3)
}
