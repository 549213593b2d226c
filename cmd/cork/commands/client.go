package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/finleyb/corkboard/internal/config"
	"github.com/finleyb/corkboard/internal/logging"
	"github.com/finleyb/corkboard/internal/rest"
	"github.com/finleyb/corkboard/internal/session"
	"github.com/finleyb/corkboard/pkg/board"
)

// savedSession is the on-disk shape of a persisted login.
type savedSession struct {
	User  board.Member `json:"user"`
	Token string       `json:"token"`
}

// sessionFilePath returns ~/.corkboard/session.json.
func sessionFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".corkboard", "session.json"), nil
}

// saveSession persists the login so later invocations stay authenticated.
func saveSession(sess *session.Session) error {
	path, err := sessionFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	user := sess.User()
	if user == nil {
		return fmt.Errorf("no active session to save")
	}
	data, err := json.Marshal(savedSession{User: *user, Token: sess.Token()})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// loadSession restores a persisted login if one exists.
func loadSession(sess *session.Session) {
	path, err := sessionFilePath()
	if err != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return
	}
	sess.Begin(saved.User, saved.Token)
}

// clearSession removes the persisted login.
func clearSession() {
	if path, err := sessionFilePath(); err == nil {
		os.Remove(path)
	}
}

// newClient wires up config, logging, session, and the REST client for a
// command invocation.
func newClient() (*config.Config, *session.Session, *rest.Client, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log := logging.New(logging.Options{Verbose: verbose, File: logFile})
	sess := session.New()
	loadSession(sess)

	client := rest.NewClient(cfg.APIURL, sess, log)
	return cfg, sess, client, log, nil
}
