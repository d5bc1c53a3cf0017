package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// SeedAccount is an account entry of a seed file.
type SeedAccount struct {
	ID         string             `yaml:"id"`
	ExternalID string             `yaml:"external_id"`
	Type       domain.AccountType `yaml:"type"`
	Name       string             `yaml:"name"`
	// AccessToken is expanded with os.ExpandEnv so secrets can stay in the environment.
	AccessToken string `yaml:"access_token"`
}

// SeedChatbot is a chatbot entry of a seed file. The flow is either inline or
// read from FlowFile, relative to the seed file.
type SeedChatbot struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	AccountID   string      `yaml:"account_id"`
	Mode        domain.Mode `yaml:"mode"`
	TestTrigger string      `yaml:"test_trigger"`
	Testers     []string    `yaml:"testers"`
	FlowFile    string      `yaml:"flow_file"`
	Flow        any         `yaml:"flow"`

	flow domain.FlowGraph
}

// Seed is the content of a seed file.
type Seed struct {
	Accounts []SeedAccount `yaml:"accounts"`
	Chatbots []SeedChatbot `yaml:"chatbots"`
}

// LoadSeed reads and resolves a YAML or JSON seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range seed.Chatbots {
		c := &seed.Chatbots[i]
		if c.ID == "" || c.AccountID == "" {
			return nil, fmt.Errorf("seed chatbot %d: id and account_id are required", i)
		}
		if c.Mode == "" {
			c.Mode = domain.ModeActive
		}
		if !c.Mode.Valid() {
			return nil, fmt.Errorf("seed chatbot %s: %w: %q", c.ID, domain.ErrInvalidMode, c.Mode)
		}

		var raw []byte
		switch {
		case c.FlowFile != "":
			p := c.FlowFile
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			if raw, err = os.ReadFile(p); err != nil {
				return nil, fmt.Errorf("seed chatbot %s: %w", c.ID, err)
			}
		case c.Flow != nil:
			if raw, err = json.Marshal(c.Flow); err != nil {
				return nil, fmt.Errorf("seed chatbot %s: %w", c.ID, err)
			}
		default:
			c.flow = domain.DefaultFlow()
			continue
		}
		if c.flow, err = chatflow.ParseFlow(raw); err != nil {
			return nil, fmt.Errorf("seed chatbot %s: %w", c.ID, err)
		}
	}
	for i, a := range seed.Accounts {
		if a.ID == "" || a.ExternalID == "" {
			return nil, fmt.Errorf("seed account %d: id and external_id are required", i)
		}
	}
	return &seed, nil
}

// Apply upserts the seeded accounts and chatbots.
func (s *Seed) Apply(ctx context.Context, stores chatflow.Stores) error {
	now := time.Now().UTC()
	for _, a := range s.Accounts {
		typ := a.Type
		if typ == "" {
			typ = domain.AccountMessenger
		}
		err := stores.Accounts.Save(ctx, &domain.Account{
			ID:          a.ID,
			ExternalID:  a.ExternalID,
			Type:        typ,
			Name:        a.Name,
			AccessToken: os.ExpandEnv(a.AccessToken),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("failed to seed account %s: %w", a.ID, err)
		}
	}
	for _, c := range s.Chatbots {
		bot := &domain.Chatbot{
			ID:          c.ID,
			Name:        c.Name,
			AccountID:   c.AccountID,
			Flow:        c.flow,
			Mode:        c.Mode,
			TestTrigger: c.TestTrigger,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, psid := range c.Testers {
			bot.Testers = append(bot.Testers, domain.Tester{UserPSID: psid, AddedAt: now})
		}
		if err := stores.Chatbots.Save(ctx, bot); err != nil {
			return fmt.Errorf("failed to seed chatbot %s: %w", c.ID, err)
		}
	}
	return nil
}
