package notestore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/marknote/internal/dialog"
	"github.com/starford/marknote/internal/repository"
	"github.com/starford/marknote/internal/rootdir"
)

func newRealRepo(t *testing.T) *repository.Repository {
	t.Helper()
	res := rootdir.New(rootdir.Options{})
	require.NoError(t, res.Set(t.TempDir()))
	return repository.New(res, dialog.Capabilities{Confirm: dialog.Static(true)}, nil)
}
