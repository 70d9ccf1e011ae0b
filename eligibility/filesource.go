// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eligibility

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// fileMember is one roster entry in the member directory file
type fileMember struct {
	MemberID          uint64   `yaml:"memberId"`
	TenureYears       float64  `yaml:"tenureYears"`
	EventsOrganized   int      `yaml:"eventsOrganized"`
	TrainingsAttended int      `yaml:"trainingsAttended"`
	PeerNominations   int      `yaml:"peerNominations"`
	PriorRoles        []string `yaml:"priorRoles"`
}

type fileRoster struct {
	Members []fileMember `yaml:"members"`
}

// FileSource is a MemberDataSource backed by a YAML member directory
// file. Intended for deployments without a live membership system and for
// development; Reload picks up file edits without a restart.
type FileSource struct {
	path string

	mu       sync.RWMutex
	profiles map[uint64]*MemberProfile
	order    []uint64
}

func NewFileSource(path string) (*FileSource, error) {
	s := &FileSource{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the roster file, replacing the in-memory directory
func (s *FileSource) Reload() error {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("error reading member roster file: %w", err)
	}
	var roster fileRoster
	if err := yaml.Unmarshal(buf, &roster); err != nil {
		return fmt.Errorf("error parsing member roster file: %w", err)
	}
	profiles := make(map[uint64]*MemberProfile, len(roster.Members))
	order := make([]uint64, 0, len(roster.Members))
	for _, member := range roster.Members {
		if _, ok := profiles[member.MemberID]; ok {
			return fmt.Errorf(
				"duplicate member %d in roster file",
				member.MemberID,
			)
		}
		profiles[member.MemberID] = &MemberProfile{
			MemberID:          member.MemberID,
			TenureYears:       member.TenureYears,
			EventsOrganized:   member.EventsOrganized,
			TrainingsAttended: member.TrainingsAttended,
			PeerNominations:   member.PeerNominations,
			PriorRoles:        member.PriorRoles,
		}
		order = append(order, member.MemberID)
	}
	s.mu.Lock()
	s.profiles = profiles
	s.order = order
	s.mu.Unlock()
	return nil
}

func (s *FileSource) Profile(
	_ context.Context,
	memberID uint64,
) (*MemberProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[memberID]
	if !ok {
		return nil, fmt.Errorf("member %d not found in roster", memberID)
	}
	// Copy so callers cannot mutate the cached profile
	out := *profile
	return &out, nil
}

func (s *FileSource) Members(_ context.Context) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint64, len(s.order))
	copy(out, s.order)
	return out, nil
}
