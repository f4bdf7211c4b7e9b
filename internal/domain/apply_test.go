package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksonwyt/byldur-sub000/internal/content"
	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

func project(version int, c domain.Content) *domain.Project {
	p := &domain.Project{ID: 7, Version: version, Content: c}
	p.SyncContentColumns()
	return p
}

func TestApplyContentUpdate_ChangedContentSnapshotsAndBumps(t *testing.T) {
	p := project(3, domain.Content{HTML: "<p>A</p>", CSS: ""})

	snap, changed := domain.ApplyContentUpdate(p, domain.Content{HTML: "<p>B</p>", CSS: ""}, content.Equal)

	require.True(t, changed)
	require.NotNil(t, snap)
	assert.Equal(t, uint(7), snap.ProjectID)
	assert.Equal(t, "<p>A</p>", snap.HTML)
	assert.Equal(t, 3, snap.Version)
	assert.Equal(t, 4, p.Version)
	assert.Equal(t, "<p>B</p>", p.ContentHTML)
}

func TestApplyContentUpdate_IdenticalContentIsNoop(t *testing.T) {
	p := project(3, domain.Content{HTML: "<p>A</p>"})

	snap, changed := domain.ApplyContentUpdate(p, domain.Content{HTML: "<p>A</p>"}, content.Equal)

	assert.False(t, changed)
	assert.Nil(t, snap)
	assert.Equal(t, 3, p.Version)
}

func TestApplyContentUpdate_WhitespaceOnlyDifferenceIsNoop(t *testing.T) {
	p := project(5, domain.Content{HTML: "<div><p>Hello</p></div>", CSS: "p{color:red;}"})

	snap, changed := domain.ApplyContentUpdate(p, domain.Content{
		HTML: "<div>\n  <p>Hello</p>\n</div>",
		CSS:  "p { color:red; }",
	}, content.Equal)

	// CSS differs only in whitespace and HTML only in indentation, so no
	// version record may be produced.
	assert.False(t, changed)
	assert.Nil(t, snap)
	assert.Equal(t, 5, p.Version)
}

func TestApplyContentUpdate_SecondIdenticalSaveIsNoop(t *testing.T) {
	p := project(1, domain.Content{HTML: "<p>A</p>"})

	_, changed := domain.ApplyContentUpdate(p, domain.Content{HTML: "<p>B</p>"}, content.Equal)
	require.True(t, changed)
	assert.Equal(t, 2, p.Version)

	snap, changed := domain.ApplyContentUpdate(p, domain.Content{HTML: "<p>B</p>"}, content.Equal)
	assert.False(t, changed)
	assert.Nil(t, snap)
	assert.Equal(t, 2, p.Version)
}

func TestApplyContentUpdate_EachChangeBumpsByExactlyOne(t *testing.T) {
	p := project(1, domain.Content{HTML: "<p>v1</p>"})
	for i := 2; i <= 6; i++ {
		snap, changed := domain.ApplyContentUpdate(p, domain.Content{HTML: "<p>v" + string(rune('0'+i)) + "</p>"}, content.Equal)
		require.True(t, changed)
		require.Equal(t, i-1, snap.Version)
		require.Equal(t, i, p.Version)
	}
}
