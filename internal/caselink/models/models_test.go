package models

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("  witness ")
	require.NoError(t, err)
	assert.Equal(t, RoleWitness, r)

	_, err = ParseRole("Bystander")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ParseRole("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestLessOrdering(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	witnessOld := Link{ID: id.NewLinkID(), Role: RoleWitness, AddedAt: base}
	witnessNew := Link{ID: id.NewLinkID(), Role: RoleWitness, AddedAt: base.Add(time.Hour)}
	accused := Link{ID: id.NewLinkID(), Role: RoleAccused, AddedAt: base}
	primary := Link{ID: id.NewLinkID(), Role: RoleVictim, IsPrimary: true, AddedAt: base}

	links := []Link{witnessOld, accused, witnessNew, primary}
	slices.SortFunc(links, func(a, b Link) int {
		if Less(a, b) {
			return -1
		}
		if Less(b, a) {
			return 1
		}
		return 0
	})

	assert.Equal(t, []id.LinkID{primary.ID, accused.ID, witnessNew.ID, witnessOld.ID},
		[]id.LinkID{links[0].ID, links[1].ID, links[2].ID, links[3].ID})
}

func TestSubjectPersonName(t *testing.T) {
	assert.Equal(t, "Asha Rao", Subject{FirstName: "Asha", LastName: "Rao"}.PersonName())
}
