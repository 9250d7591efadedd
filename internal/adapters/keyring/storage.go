// Package keyring keeps the device's local storage in the operating system keychain.
package keyring

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gokeyring "github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// ServiceName is the keychain service under which values are stored.
const ServiceName = "greenhands"

// Storage stores every value of a namespace as one YAML document in a single keychain
// item, so multi-key writes replace the item in one call.
type Storage struct {
	mu      sync.Mutex
	service string
	account string
}

// NewStorage returns a keychain-backed storage for namespace.
func NewStorage(namespace string) *Storage {
	if namespace == "" {
		namespace = "default"
	}
	return &Storage{service: ServiceName, account: namespace}
}

func (s *Storage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *Storage) SetMany(_ context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		if k == "" {
			return errors.New("storage key cannot be empty")
		}
		current[k] = v
	}
	return s.save(current)
}

func (s *Storage) Remove(_ context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		if err := gokeyring.Delete(s.service, s.account); err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
			return fmt.Errorf("failed to delete from keychain: %w", err)
		}
		return nil
	}
	return s.save(current)
}

func (s *Storage) load() (map[string]string, error) {
	raw, err := gokeyring.Get(s.service, s.account)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from keychain: %w", err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode keychain item: %w", err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (s *Storage) save(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode keychain item: %w", err)
	}
	if err := gokeyring.Set(s.service, s.account, string(data)); err != nil {
		return fmt.Errorf("failed to store in keychain: %w", err)
	}
	return nil
}
