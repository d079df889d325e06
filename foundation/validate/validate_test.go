package validate_test

import (
	"testing"

	"github.com/ardanlabs/chainsim/foundation/validate"
	"github.com/stretchr/testify/require"
)

type newChain struct {
	Name       string `json:"name" validate:"required"`
	Consensus  string `json:"consensus" validate:"omitempty,oneof=PROOF_OF_WORK"`
	Difficulty uint   `json:"difficulty" validate:"min=1,max=256"`
}

func TestCheck(t *testing.T) {
	require.NoError(t, validate.Check(newChain{Name: "main", Difficulty: 4}))

	err := validate.Check(newChain{Consensus: "PROOF_OF_STAKE", Difficulty: 300})
	require.Error(t, err)
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	require.Len(t, fields, 3)
	require.Contains(t, fields, "name")
	require.Contains(t, fields, "consensus")
	require.Contains(t, fields, "difficulty")
	require.Equal(t, "name is a required field", fields["name"])
}

func TestCheckID(t *testing.T) {
	require.NoError(t, validate.CheckID(validate.GenerateID()))
	require.Error(t, validate.CheckID("chain-1"))
}
