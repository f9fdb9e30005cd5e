package main

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesLoadableHome(t *testing.T) {
	home := t.TempDir()
	initArgs = initArguments{
		Home:     home,
		ChainID:  "dao-init-test",
		Quorum:   2,
		Treasury: "12.5",
		Members:  []string{"0x00000000000000000000000000000000000000d1"},
	}
	require.NoError(t, initRun(initCmd, nil))

	cfg, err := config.LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, home, cfg.RootDir)

	dat, err := os.ReadFile(cfg.GenesisFile())
	require.NoError(t, err)
	var doc struct {
		ChainID  string          `json:"chain_id"`
		AppState json.RawMessage `json:"app_state"`
	}
	require.NoError(t, json.Unmarshal(dat, &doc))
	assert.Equal(t, "dao-init-test", doc.ChainID)

	var g types.AppGenesis
	require.NoError(t, json.Unmarshal(doc.AppState, &g))
	assert.Equal(t, uint64(2), g.Quorum)
	assert.Equal(t, "12500000000000000000", g.Treasury)
	require.Len(t, g.Members, 2)
	member, err := config.InitializeMemberKey(cfg)
	require.NoError(t, err)
	assert.Equal(t, member, g.Members[0].Address)

	// a second init must not clobber the genesis
	assert.Error(t, initRun(initCmd, nil))
}
