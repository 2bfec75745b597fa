package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldRemovesAccents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "canción", want: "cancion"},
		{in: "Cuéntame un chiste", want: "Cuentame un chiste"},
		{in: "álbum", want: "album"},
		{in: "configuración", want: "configuracion"},
		{in: "pingüino", want: "pinguino"},
		{in: "añadir", want: "anadir"},
		{in: "plain", want: "plain"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, Fold(tc.in), tc.in)
	}
}

func TestNormalizeIsDeterministicAndTrimmed(t *testing.T) {
	t.Parallel()

	got := Normalize("  Cómo se llama esta Canción ")
	require.Equal(t, "como se llama esta cancion", got)
	require.Equal(t, got, Normalize(got))
}
