package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTableOrderAndNormalization(t *testing.T) {
	t.Parallel()

	entries := DefaultTable().Entries()
	require.NotEmpty(t, entries)
	require.Equal(t, Play, entries[0].Command)
	require.Equal(t, Stop, entries[1].Command)

	for _, e := range entries {
		require.True(t, Known(e.Command), e.Command)
		for _, s := range e.Synonyms {
			require.NotContains(t, s, "ó")
			require.NotContains(t, s, "á")
			require.NotContains(t, s, "é")
		}
	}
}

func TestDefaultTableKeys(t *testing.T) {
	t.Parallel()

	table := DefaultTable()

	key, ok := table.Key(TellJoke)
	require.True(t, ok)
	require.Equal(t, "cuentame un chiste", key)

	key, ok = table.Key(CurrentTrackName)
	require.True(t, ok)
	require.Equal(t, "como se llama esta cancion", key)

	_, ok = table.Key(FreeformQuery)
	require.False(t, ok)
}

func TestEntriesReturnsCopy(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	entries := table.Entries()
	entries[0].Command = Exit
	require.Equal(t, Play, table.Entries()[0].Command)
}

func TestParseTableRejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	_, err := ParseTable([]byte("- command: dance\n  key: baila\n  synonyms: [baila]\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown command")
}

func TestParseTableRejectsDuplicateCommand(t *testing.T) {
	t.Parallel()

	_, err := ParseTable([]byte("- command: stop\n  key: a\n  synonyms: [a]\n- command: stop\n  key: b\n  synonyms: [b]\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "listed twice")
}

func TestParseTableRejectsEmptySynonyms(t *testing.T) {
	t.Parallel()

	_, err := ParseTable([]byte("- command: stop\n  key: a\n  synonyms: []\n"))
	require.Error(t, err)
}
