package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapknit/geocache/pkg/store"
)

func TestSubqueryInputValidateRejectsEmptyPhrase(t *testing.T) {
	s := SubqueryInput{Phrase: "", Weight: 1, Cache: store.NewMemStore()}
	require.Error(t, s.validate())
}

func TestSubqueryInputValidateRejectsWeightOutOfRange(t *testing.T) {
	s := SubqueryInput{Phrase: "main", Weight: 1.5, Cache: store.NewMemStore()}
	require.Error(t, s.validate())
}

func TestSubqueryInputValidateRejectsBadPrefixMode(t *testing.T) {
	s := SubqueryInput{Phrase: "main", Weight: 1, Prefix: 3, Cache: store.NewMemStore()}
	require.Error(t, s.validate())
}

func TestSubqueryInputValidateRejectsNilCache(t *testing.T) {
	s := SubqueryInput{Phrase: "main", Weight: 1, Cache: nil}
	require.Error(t, s.validate())
}

func TestSubqueryInputValidateAcceptsWellFormedInput(t *testing.T) {
	s := SubqueryInput{Phrase: "main", Weight: 0.8, Prefix: 1, Cache: store.NewMemStore()}
	require.NoError(t, s.validate())
}

func TestLangfieldFromLanguagesEmptyMeansAllLanguages(t *testing.T) {
	require.Equal(t, store.AllLanguages, langfieldFromLanguages(nil))
}

func TestLangfieldFromLanguagesIgnoresValuesAtOrAbove128(t *testing.T) {
	lf := langfieldFromLanguages([]uint8{0, 63, 64, 127, 128, 200})
	require.Equal(t, uint64(1)|uint64(1)<<63, lf.Lo)
	require.Equal(t, uint64(1)|uint64(1)<<63, lf.Hi)
}

func TestRequestToSubqueriesRejectsEmptyStack(t *testing.T) {
	_, err := Request{}.toSubqueries()
	require.Error(t, err)
}

func TestRequestToSubqueriesBuildsCoalesceSubqueries(t *testing.T) {
	s := store.NewMemStore()
	req := Request{
		Subqueries: []SubqueryInput{
			{Phrase: "main", Weight: 1, Prefix: 1, Idx: 0, Zoom: 14, Mask: 1, Cache: s},
		},
	}
	subqs, err := req.toSubqueries()
	require.NoError(t, err)
	require.Len(t, subqs, 1)
	require.Equal(t, "main", subqs[0].Phrase)
	require.Equal(t, store.AllLanguages, subqs[0].Langfield)
}
