package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteNodeLabels(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "label with spaces gets quoted",
			in:   `A[Fetch the data] --> B[Done]`,
			want: `A["Fetch the data"] --> B[Done]`,
		},
		{
			name: "single word label untouched",
			in:   `A[Fetch] --> B[Done]`,
			want: `A[Fetch] --> B[Done]`,
		},
		{
			name: "non-ascii label gets quoted",
			in:   `A[データ取得]`,
			want: `A["データ取得"]`,
		},
		{
			name: "already quoted label untouched",
			in:   `A["Fetch the data"]`,
			want: `A["Fetch the data"]`,
		},
		{
			name: "round shape",
			in:   `B(load more pages)`,
			want: `B("load more pages")`,
		},
		{
			name: "decision shape",
			in:   `C{has more?}`,
			want: `C{"has more?"}`,
		},
		{
			name: "stadium shape",
			in:   `D([start here])`,
			want: `D(["start here"])`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteNodeLabels(tt.in))
		})
	}
}

func TestQuoteEdgeLabels(t *testing.T) {
	assert.Equal(t, `A -->|"on success"| B`, quoteEdgeLabels(`A -->|on success| B`))
	assert.Equal(t, `A -->|yes| B`, quoteEdgeLabels(`A -->|yes| B`))
}

func TestNormalizeArrows(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"split dashes", `A -- > B`, `A --> B`},
		{"broken dash pair", `A - -> B`, `A --> B`},
		{"split async arrow", `A - >> B`, `A ->> B`},
		{"em dash arrow", `A —> B`, `A --> B`},
		{"en dash arrow", `A –> B`, `A --> B`},
		{"split thick arrow", `A == > B`, `A ==> B`},
		{"valid arrow untouched", `A --> B`, `A --> B`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeArrows(tt.in))
		})
	}
}

func TestQuoteParticipants(t *testing.T) {
	assert.Equal(t,
		"participant Ada_Lovelace as Ada Lovelace",
		quoteParticipants("participant Ada Lovelace"))
	assert.Equal(t,
		"participant api",
		quoteParticipants("participant api"))
	assert.Equal(t,
		"participant A as Query Controller",
		quoteParticipants("participant A as Query Controller"))
	assert.Equal(t,
		"    actor p as 利用者",
		quoteParticipants("    actor 利用者"))
}

func TestNormalizeFullBlock(t *testing.T) {
	in := "flowchart TD\n" +
		"  A[Fetch notes] -- > B{has diagrams?}\n" +
		"  B -->|no| C[render markdown]\n" +
		"  B -->|try repair| D[normalize block]\n"
	want := "flowchart TD\n" +
		"  A[\"Fetch notes\"] --> B{\"has diagrams?\"}\n" +
		"  B -->|no| C[\"render markdown\"]\n" +
		"  B -->|\"try repair\"| D[\"normalize block\"]\n"
	assert.Equal(t, want, Normalize(in))
}

func TestPrepareRenderable(t *testing.T) {
	block := Prepare("flowchart TD\n  A[start] --> B[end]\n")
	require.False(t, block.Fallback)
	assert.NotEmpty(t, block.ContainerID)
}

func TestPrepareFallback(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unknown header", "blockdiagram\n  A --> B"},
		{"unbalanced brackets", "flowchart TD\n  A[unclosed --> B"},
		{"empty", "   \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := Prepare(tt.source)
			assert.True(t, block.Fallback)
			assert.Equal(t, tt.source, block.Source)
		})
	}
}

func TestPrepareContainerIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		block := Prepare("pie\n  \"a\": 1")
		require.False(t, seen[block.ContainerID], "duplicate container id %s", block.ContainerID)
		seen[block.ContainerID] = true
	}
}
