package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PNG", "notas.docx", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	single := filepath.Join(t.TempDir(), "verso.pdf")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o644))

	paths, err := collectPaths([]string{single, dir})
	require.NoError(t, err)

	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "a.PNG"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "c.txt"),
	}, paths)

	_, err = collectPaths([]string{filepath.Join(dir, "missing.pdf")})
	assert.Error(t, err)
}

func TestJoinFields(t *testing.T) {
	assert.Equal(t, "-", joinFields(nil))
	assert.Equal(t, "cnpj,dpvat_insurance", joinFields([]dto.Field{dto.FieldCNPJ, dto.FieldDPVAT}))
}
