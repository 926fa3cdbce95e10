package trigger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// GSIConfigFile is where the game looks for integration configs.
const GSIConfigFile = "game/csgo/cfg/gamestate_integration_qtshock.cfg"

const gameDirSuffix = "Counter-Strike Global Offensive"

// ErrNotGameDir is returned for a directory that is not the CS2 install.
var ErrNotGameDir = errors.New("not the Counter-Strike 2 game directory")

var gsiConfig = template.Must(template.New("gsi").Parse(`"QTShock"
{
	"uri"	"http://{{.Addr}}"
	"timeout"	"1.0"
	"buffer"	"0.0"
	"throttle"	"0.0"
	"heartbeat"	"60.0"
	"auth"
	{
		"token"	"TOKEN"
	}
	"output"
	{
		"precision"	"3"
		"precision_position"	"1"
		"precision_vector"	"3"
	}
	"data"
	{
{{- range .Data}}
		"{{.}}"	"1"
{{- end}}
	}
}
`))

var gsiData = []string{
	"map_round_wins", "map", "player_id", "player_match_stats", "player_state",
	"player_weapons", "provider", "round", "allgrenades", "allplayers_id",
	"allplayers_match_stats", "allplayers_position", "allplayers_state",
	"allplayers_weapons", "bomb", "phase_countdowns", "player_position",
}

// WriteGSIConfig installs the game-state integration config below gameDir,
// pointing the game at addr. It returns the written path.
func WriteGSIConfig(gameDir, addr string) (string, error) {
	clean := filepath.Clean(gameDir)
	if !strings.HasSuffix(clean, gameDirSuffix) {
		return "", ErrNotGameDir
	}

	path := filepath.Join(clean, filepath.FromSlash(GSIConfigFile))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create gsi config: %w", err)
	}
	err = gsiConfig.Execute(f, struct {
		Addr string
		Data []string
	}{addr, gsiData})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write gsi config: %w", err)
	}
	return path, nil
}
