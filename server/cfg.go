package server

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/mazerun/model"
)

// LoadPresets builds one game per valid line of the preset file at path.
// Lines hold "width height levels"; blank lines and # comments are skipped.
func (s *GameServer) LoadPresets(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	configs, err := readPresets(file)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, c := range configs {
		if _, err := s.LoadNewMaze(c); err != nil {
			log.WithError(err).WithField("maze", c).Warn("skipping preset")
			continue
		}
		loaded++
	}
	return loaded, nil
}

func readPresets(reader io.Reader) ([]model.Config, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Split(bufio.ScanLines)
	configs := make([]model.Config, 0)
	line := 0
	for scanner.Scan() {
		line++
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		c, err := parsePreset(s)
		if err != nil {
			log.WithError(err).WithField("line", line).Warn("skipping preset line")
			continue
		}
		configs = append(configs, c)
	}
	return configs, scanner.Err()
}

func parsePreset(s string) (model.Config, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return model.Config{}, fmt.Errorf("want 3 fields, got %d", len(fields))
	}
	var v [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return model.Config{}, err
		}
		v[i] = n
	}
	c := model.Config{Width: v[0], Height: v[1], Levels: v[2]}
	return c, c.Validate()
}
