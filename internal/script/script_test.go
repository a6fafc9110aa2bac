package script

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/autoshorts/internal/llm"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(llm.Result)
	return res, args.Error(1)
}

func byName(name string) any {
	return mock.MatchedBy(func(r llm.Request) bool { return r.Name == name })
}

func TestWriter_Package(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, byName("script")).Return(llm.Result{
		"title":       "  Your Brain Lies To You  ",
		"script":      "Your brain lies. It fills gaps. And this is why your brain lies.",
		"description": "Ever wondered why?...",
		"tags":        []any{"#brain", "#psychology", "#Brain", " "},
	}, nil)

	w := NewWriter(gen, WithDescriptionSuffix("Made with footage from Pexels."))
	pkg, err := w.Package(context.Background(), "Psychology")
	require.NoError(t, err)

	assert.Equal(t, "Your Brain Lies To You", pkg.Title)
	assert.Equal(t, "Ever wondered why?.\n\nMade with footage from Pexels.", pkg.Description)
	assert.Equal(t, []string{"#brain", "#psychology"}, pkg.Tags)
	gen.AssertExpectations(t)
}

func TestWriter_Package_DefaultDisclaimer(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, byName("script")).Return(llm.Result{
		"title": "t", "script": "s", "description": "Why we forget.", "tags": []any{"x"},
	}, nil)

	pkg, err := NewWriter(gen).Package(context.Background(), "Psychology")
	require.NoError(t, err)
	assert.Equal(t,
		"Why we forget.\n\nDerived from generative inference and should not be treated as empirical fact.",
		pkg.Description)
}

func TestWriter_Package_RequestShape(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Name == "script" &&
			strings.Contains(r.Prompt, `"Fun Facts"`) &&
			assert.ObjectsAreEqual([]string{"title", "script", "description", "tags"}, r.Fields) &&
			r.Schema != nil
	})).Return(llm.Result{
		"title": "t", "script": "s", "description": "d", "tags": []any{"x"},
	}, nil)

	_, err := NewWriter(gen).Package(context.Background(), "Fun Facts")
	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestWriter_Package_Invalid(t *testing.T) {
	tests := []struct {
		name string
		res  llm.Result
	}{
		{"empty title", llm.Result{"title": " ", "script": "s", "description": "d", "tags": []any{"x"}}},
		{"no tags", llm.Result{"title": "t", "script": "s", "description": "d", "tags": []any{}}},
		{"wrong tag type", llm.Result{"title": "t", "script": "s", "description": "d", "tags": "x"}},
		{"empty script", llm.Result{"title": "t", "script": "", "description": "d", "tags": []any{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			gen.On("Generate", mock.Anything, mock.Anything).Return(tt.res, nil)

			_, err := NewWriter(gen).Package(context.Background(), "AI")
			assert.ErrorIs(t, err, ErrInvalidPackage)
		})
	}
}

func TestWriter_Package_GeneratorError(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, llm.ErrAllProvidersExhausted)

	_, err := NewWriter(gen).Package(context.Background(), "AI")
	assert.ErrorIs(t, err, llm.ErrAllProvidersExhausted)
}

func TestWriter_SearchQueries(t *testing.T) {
	script := strings.Repeat("word ", 90)

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Name == "search_queries" && assert.ObjectsAreEqual([]string{"titles"}, r.Fields)
	})).Return(llm.Result{
		"titles": []any{"brain neurons glowing", "  ", "city crowd walking", "ocean waves sunset", "extra query here"},
	}, nil)

	w := NewWriter(gen, WithSecondsPerClip(10))
	queries, err := w.SearchQueries(context.Background(), script, 28.4)
	require.NoError(t, err)

	// 28.4s of narration over 10s clips needs 3 segments; blanks are dropped.
	assert.Equal(t, []string{"brain neurons glowing", "city crowd walking", "ocean waves sunset"}, queries)
	gen.AssertExpectations(t)
}

func TestWriter_SearchQueries_AllBlank(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(llm.Result{"titles": []any{"", "  "}}, nil)

	_, err := NewWriter(gen).SearchQueries(context.Background(), "a b c", 12)
	assert.ErrorIs(t, err, ErrNoQueries)
}

func TestWriter_SearchQueries_EmptyScript(t *testing.T) {
	gen := new(mockGenerator)
	_, err := NewWriter(gen).SearchQueries(context.Background(), "   ", 12)
	assert.ErrorIs(t, err, ErrEmptyScript)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestWriter_SearchQueries_GeneratorError(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := NewWriter(gen).SearchQueries(context.Background(), "a b c", 12)
	assert.Error(t, err)
}

func TestSegmentCount(t *testing.T) {
	tests := []struct {
		audio, perClip float64
		want           int
	}{
		{0, 10, 1},
		{5, 10, 1},
		{10, 10, 1},
		{10.1, 10, 2},
		{55, 10, 6},
		{55, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SegmentCount(tt.audio, tt.perClip), "audio=%v perClip=%v", tt.audio, tt.perClip)
	}
}

func TestSplitWords(t *testing.T) {
	words := strings.Fields("a b c d e f g")

	assert.Equal(t, []string{"a b c d", "e f g"}, SplitWords(words, 2))
	assert.Equal(t, []string{"a b c d e f g"}, SplitWords(words, 1))
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, SplitWords(words, 20))
	assert.Equal(t, []string{"a b c d e f g"}, SplitWords(words, 0))
}

func TestAppendSuffix(t *testing.T) {
	assert.Equal(t, "Watch till the end.\n\nsfx", AppendSuffix("Watch till the end...  ", "sfx"))
	assert.Equal(t, "No period.\n\nsfx", AppendSuffix("No period", "sfx"))
	assert.Equal(t, "Keep as is.", AppendSuffix(" Keep as is. ", ""))
}

func TestPickGenre(t *testing.T) {
	_, err := PickGenre(nil, nil)
	assert.ErrorIs(t, err, ErrNoGenres)

	genres := []string{"AI", "Psychology", "Fun Facts"}
	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		g, err := PickGenre(genres, rng)
		require.NoError(t, err)
		assert.Contains(t, genres, g)
	}
}
