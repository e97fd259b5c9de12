package state

import (
	"sync"
	"time"

	"github.com/axisfin/conductor/internal/domain"
)

// Store owns every tenant's agent status block. It is the sole mutation
// point for agent statuses, logs, and counters; all state is process-local
// and volatile, and everything handed back to callers is a deep copy.
//
// A store-level RWMutex guards the tenant map; each tenant carries its own
// mutex guarding that tenant's agents and stats. Locks are never held
// across runtime waits — services perform waits between store calls.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*tenantState

	globalMu sync.Mutex
	global   globalCounters
}

type tenantState struct {
	mu     sync.Mutex
	id     string
	agents map[domain.AgentType]*domain.AgentRecord
	stats  domain.TenantStats
}

type globalCounters struct {
	documentsProcessed   int64
	avgProcessingSeconds float64
	apiCallsToday        int64
}

func NewStore() *Store {
	return &Store{tenants: make(map[string]*tenantState)}
}

// tenant returns the status block for tenantID, seeding it on first access.
// Tenant IDs are opaque and not validated. Seeding happens at most once per
// tenant for the lifetime of the process.
func (s *Store) tenant(tenantID string) *tenantState {
	s.mu.RLock()
	ts, ok := s.tenants[tenantID]
	s.mu.RUnlock()
	if ok {
		return ts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if ts, ok = s.tenants[tenantID]; ok {
		return ts
	}

	ts = newTenantState(tenantID)
	s.tenants[tenantID] = ts
	return ts
}

func newTenantState(tenantID string) *tenantState {
	agents := make(map[domain.AgentType]*domain.AgentRecord)
	for _, d := range domain.AllAgents() {
		agents[d.Type] = &domain.AgentRecord{
			Type:        d.Type,
			Name:        d.Name,
			Description: d.Description,
			Status:      domain.StatusInactive,
			Provider:    d.Provider,
			Stats:       make(map[string]int64),
		}
	}
	return &tenantState{id: tenantID, agents: agents}
}

// recomputeActiveAgents must be called with ts.mu held.
func (ts *tenantState) recomputeActiveAgents() {
	n := 0
	for _, a := range ts.agents {
		if a.Status == domain.StatusActive {
			n++
		}
	}
	ts.stats.ActiveAgents = n
}

// Transition moves one agent's status from any of the given statuses to the
// target status and returns the previous status. An empty from set means
// unconditional. The tenant's ActiveAgents count is recomputed under the
// same lock, so it can never drift from the agent statuses. Returns false
// for an unknown agent type or a guarded transition that does not apply.
func (s *Store) Transition(tenantID string, agent domain.AgentType, from []domain.AgentStatus, to domain.AgentStatus) (domain.AgentStatus, bool) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.agents[agent]
	if !ok {
		return "", false
	}
	if len(from) > 0 {
		allowed := false
		for _, f := range from {
			if rec.Status == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return rec.Status, false
		}
	}

	prev := rec.Status
	rec.Status = to
	ts.recomputeActiveAgents()
	return prev, true
}

// Status returns one agent's current status.
func (s *Store) Status(tenantID string, agent domain.AgentType) (domain.AgentStatus, bool) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.agents[agent]
	if !ok {
		return "", false
	}
	return rec.Status, true
}

// AppendLog appends one entry to an agent's log, evicting the oldest entry
// once the log exceeds domain.MaxAgentLogEntries.
func (s *Store) AppendLog(tenantID string, agent domain.AgentType, level domain.LogLevel, msg string) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.agents[agent]
	if !ok {
		return
	}
	rec.Logs = append(rec.Logs, domain.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   msg,
	})
	if n := len(rec.Logs); n > domain.MaxAgentLogEntries {
		rec.Logs = rec.Logs[n-domain.MaxAgentLogEntries:]
	}
}

// AddAgentStat accumulates one agent counter. Counters are never reset for
// the lifetime of the process.
func (s *Store) AddAgentStat(tenantID string, agent domain.AgentType, key string, delta int64) {
	if key == "" {
		return
	}
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.agents[agent]
	if !ok {
		return
	}
	rec.Stats[key] += delta
}

// RecordDocumentProcessed folds one completed processing run into the
// tenant's and the global running average using the incremental mean
// newAvg = (oldAvg*(n-1) + sample) / n.
func (s *Store) RecordDocumentProcessed(tenantID string, seconds float64) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	ts.stats.DocumentsProcessed++
	ts.stats.AvgProcessingSeconds = incrementalMean(ts.stats.AvgProcessingSeconds, ts.stats.DocumentsProcessed, seconds)
	ts.mu.Unlock()

	s.globalMu.Lock()
	s.global.documentsProcessed++
	s.global.avgProcessingSeconds = incrementalMean(s.global.avgProcessingSeconds, s.global.documentsProcessed, seconds)
	s.globalMu.Unlock()
}

// RecordAPICall increments the tenant's and the global api_calls_today
// counter.
func (s *Store) RecordAPICall(tenantID string) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	ts.stats.APICallsToday++
	ts.mu.Unlock()

	s.globalMu.Lock()
	s.global.apiCallsToday++
	s.globalMu.Unlock()
}

// ResetDailyCounters zeroes every tenant's and the global api_calls_today
// counter. Agent stat maps are untouched. Returns the number of tenants
// reset.
func (s *Store) ResetDailyCounters() int {
	s.mu.RLock()
	tenants := make([]*tenantState, 0, len(s.tenants))
	for _, ts := range s.tenants {
		tenants = append(tenants, ts)
	}
	s.mu.RUnlock()

	for _, ts := range tenants {
		ts.mu.Lock()
		ts.stats.APICallsToday = 0
		ts.mu.Unlock()
	}

	s.globalMu.Lock()
	s.global.apiCallsToday = 0
	s.globalMu.Unlock()

	return len(tenants)
}

// AgentSnapshot returns a deep copy of one agent's record.
func (s *Store) AgentSnapshot(tenantID string, agent domain.AgentType) (domain.AgentRecord, bool) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.agents[agent]
	if !ok {
		return domain.AgentRecord{}, false
	}
	return copyRecord(rec), true
}

// Snapshot returns a deep copy of the tenant's full status block.
func (s *Store) Snapshot(tenantID string) domain.TenantAgentStatus {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	agents := make(map[domain.AgentType]domain.AgentRecord, len(ts.agents))
	for t, rec := range ts.agents {
		agents[t] = copyRecord(rec)
	}
	return domain.TenantAgentStatus{
		TenantID: tenantID,
		Agents:   agents,
		Stats:    ts.stats,
	}
}

// TenantStats returns a copy of the tenant's aggregate counters.
func (s *Store) TenantStats(tenantID string) domain.TenantStats {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.stats
}

// GlobalStats aggregates across all tenants. Active-agent and tenant counts
// are recomputed by iteration; document and API counters are maintained
// incrementally as they are recorded.
func (s *Store) GlobalStats() domain.GlobalStats {
	s.mu.RLock()
	tenants := make([]*tenantState, 0, len(s.tenants))
	for _, ts := range s.tenants {
		tenants = append(tenants, ts)
	}
	s.mu.RUnlock()

	active := 0
	for _, ts := range tenants {
		ts.mu.Lock()
		active += ts.stats.ActiveAgents
		ts.mu.Unlock()
	}

	s.globalMu.Lock()
	g := s.global
	s.globalMu.Unlock()

	return domain.GlobalStats{
		Tenants:              len(tenants),
		DocumentsProcessed:   g.documentsProcessed,
		ActiveAgents:         active,
		AvgProcessingSeconds: g.avgProcessingSeconds,
		APICallsToday:        g.apiCallsToday,
	}
}

func copyRecord(rec *domain.AgentRecord) domain.AgentRecord {
	out := *rec
	out.Logs = make([]domain.LogEntry, len(rec.Logs))
	copy(out.Logs, rec.Logs)
	out.Stats = make(map[string]int64, len(rec.Stats))
	for k, v := range rec.Stats {
		out.Stats[k] = v
	}
	return out
}

func incrementalMean(oldAvg float64, n int64, sample float64) float64 {
	if n <= 0 {
		return sample
	}
	return (oldAvg*float64(n-1) + sample) / float64(n)
}
