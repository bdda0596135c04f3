package session

import (
	"testing"

	"bakeslip/model"
	"bakeslip/preview"

	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	st := NewStore(nil, model.SliceSingle, nil)
	s := st.Create()
	require.Equal(t, model.SliceSingle, s.SliceMode)

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, s, got)

	_, err = st.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = st.Update("missing", func(s Session) (Session, error) { return s, nil })
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Delete(s.ID))
	require.ErrorIs(t, st.Delete(s.ID), ErrNotFound)
	require.Zero(t, st.Len())
}

func TestStoreReleasesDroppedPreviews(t *testing.T) {
	reg := preview.NewRegistry()
	st := NewStore(reg, "", nil)
	s := st.Create()

	s, err := st.Enqueue(s.ID,
		model.SourceFile{Name: "a.pdf", MediaType: "application/pdf"},
		model.SourceFile{Name: "b.pdf", MediaType: "application/pdf"},
		model.SourceFile{Name: "c.pdf", MediaType: "application/pdf"},
	)
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())
	removed := s.Files[1].Preview

	_, err = st.Update(s.ID, func(s Session) (Session, error) { return s.RemoveFile(1) })
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())
	require.ErrorIs(t, reg.Release(removed), preview.ErrReleased)

	_, err = st.Update(s.ID, func(s Session) (Session, error) { return s.Reset(), nil })
	require.NoError(t, err)
	require.Zero(t, reg.Len())
}

func TestStoreFailedUpdateKeepsState(t *testing.T) {
	st := NewStore(nil, "", nil)
	s := st.Create()
	got, err := st.Update(s.ID, func(s Session) (Session, error) { return s.BeginProcessing() })
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, s, got)
}

func TestStoreEnqueueRejectedReleasesPreviews(t *testing.T) {
	reg := preview.NewRegistry()
	st := NewStore(reg, "", nil)
	s := st.Create()
	_, err := st.Enqueue(s.ID, model.SourceFile{Name: "a.pdf"})
	require.NoError(t, err)
	_, err = st.Update(s.ID, func(s Session) (Session, error) { return s.BeginProcessing() })
	require.NoError(t, err)

	_, err = st.Enqueue(s.ID, model.SourceFile{Name: "late.pdf"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, 1, reg.Len())
}

func TestStoreDeleteReleasesAll(t *testing.T) {
	reg := preview.NewRegistry()
	st := NewStore(reg, "", nil)
	s := st.GetOrCreate(InboxID)
	require.Equal(t, InboxID, s.ID)
	require.Equal(t, s, st.GetOrCreate(InboxID))

	_, err := st.Enqueue(InboxID, model.SourceFile{Name: "a.pdf"}, model.SourceFile{Name: "b.pdf"})
	require.NoError(t, err)
	require.NoError(t, st.Delete(InboxID))
	require.Zero(t, reg.Len())
}
