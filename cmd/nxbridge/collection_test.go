package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCollection = `{
	"info": {"name": "Test Collection", "author": "Someone", "domainName": "skyrimspecialedition"},
	"mods": [
		{"name": "Mod One", "source": {"modId": 1, "fileId": 2, "type": "nexus"}}
	]
}`

func TestResolveCollection_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collection.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCollection), 0o644))

	col, slug, data, err := resolveCollection(context.Background(), nil, nil, path)
	require.NoError(t, err)
	assert.Equal(t, "Test Collection", col.Name)
	assert.Equal(t, "collection", slug)
	assert.Equal(t, sampleCollection, string(data))
}

func TestSlugFromLocalPath(t *testing.T) {
	assert.Equal(t, "my-collection", slugFromLocalPath("/some/dir/my-collection.json"))
	assert.Equal(t, "plain", slugFromLocalPath("plain.json"))
}

func TestCollectionSlugPattern_ExtractsSlugFromURL(t *testing.T) {
	m := collectionSlugPattern.FindStringSubmatch("https://next.nexusmods.com/skyrimspecialedition/collections/abc123")
	require.NotNil(t, m)
	assert.Equal(t, "abc123", m[1])
}

func TestBuildQuerySummary_ReportsCountsAndQueueItems(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collection.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCollection), 0o644))

	col, _, _, err := resolveCollection(context.Background(), nil, nil, path)
	require.NoError(t, err)

	mo2Path := t.TempDir()
	s, err := buildQuerySummary(col, mo2Path, true)
	require.NoError(t, err)

	assert.Equal(t, "Test Collection", s.CollectionName)
	assert.Equal(t, "skyrimspecialedition", s.GameDomain)
	assert.Equal(t, 1, s.TotalMods)
	assert.Equal(t, 1, s.ToDownload)
	assert.Equal(t, 0, s.AlreadyHave)
	assert.True(t, s.Premium)
	require.Len(t, s.Queue, 1)
	assert.Equal(t, 1, s.Queue[0].ModID)
	assert.Equal(t, 2, s.Queue[0].FileID)
	assert.Equal(t, "Mod One", s.Queue[0].ModName)
}

func TestParseNXMLink_ExtractsFields(t *testing.T) {
	link, err := parseNXMLink("nxm://skyrimspecialedition/mods/42/files/7?key=abc123&expires=1999999999")
	require.NoError(t, err)
	assert.Equal(t, "skyrimspecialedition", link.Game)
	assert.Equal(t, 42, link.ModID)
	assert.Equal(t, 7, link.FileID)
	assert.Equal(t, "abc123", link.Key)
	assert.Equal(t, int64(1999999999), link.Expires)
}

func TestParseNXMLink_RejectsNonNXMString(t *testing.T) {
	_, err := parseNXMLink("https://example.com/not-nxm")
	require.Error(t, err)
}
