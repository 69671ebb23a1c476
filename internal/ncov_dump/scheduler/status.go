package scheduler

import (
	"sync"
	"time"

	"ncov-dump/internal/ncov_dump/model"
)

// CollectionStatus 单个集合最近一次检查的结果
type CollectionStatus struct {
	Name        string    `json:"name"`
	Endpoint    string    `json:"endpoint"`
	LastChecked time.Time `json:"last_checked,omitempty"`
	LastChanged time.Time `json:"last_changed,omitempty"`
	Changes     int       `json:"changes"`
	LastError   string    `json:"last_error,omitempty"`
}

// Report 状态的只读副本
type Report struct {
	Collections   []CollectionStatus `json:"collections"`
	LastPass      time.Time          `json:"last_pass,omitempty"`
	LastPassError string             `json:"last_pass_error,omitempty"`
}

// Status 由 Worker 写入、HTTP 接口读取
type Status struct {
	mu     sync.RWMutex
	report Report
	index  map[string]int
}

func NewStatus(collections []model.Collection) *Status {
	s := &Status{index: make(map[string]int, len(collections))}
	for i, c := range collections {
		s.index[c.Name] = i
		s.report.Collections = append(s.report.Collections, CollectionStatus{Name: c.Name, Endpoint: c.Endpoint})
	}
	return s
}

func (s *Status) recordCollection(name string, at time.Time, changed bool, err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[name]
	if !ok {
		return
	}
	cs := &s.report.Collections[i]
	cs.LastChecked = at
	cs.LastError = ""
	if err != nil {
		cs.LastError = err.Error()
	}
	if changed {
		cs.LastChanged = at
		cs.Changes++
	}
}

func (s *Status) recordPass(at time.Time, err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.LastPass = at
	s.report.LastPassError = ""
	if err != nil {
		s.report.LastPassError = err.Error()
	}
}

// Report 返回当前状态的副本
func (s *Status) Report() Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.report
	out.Collections = append([]CollectionStatus(nil), s.report.Collections...)
	return out
}

// Collection 按名称查询
func (s *Status) Collection(name string) (CollectionStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[name]
	if !ok {
		return CollectionStatus{}, false
	}
	return s.report.Collections[i], true
}
