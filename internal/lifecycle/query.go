package lifecycle

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/deployment"
	"github.com/roach88/deployfin/internal/syncqueue"
)

// Summary is a point-in-time overview of the active deployment.
type Summary struct {
	Deployment           *deployment.Info           `json:"deployment"`
	Countdown            deployment.Countdown       `json:"countdown"`
	AdditionalMonthlyPay decimal.Decimal            `json:"additional_monthly_pay"`
	EstimatedTaxSavings  decimal.Decimal            `json:"estimated_tax_savings"`
	SDPMonthlyInterest   decimal.Decimal            `json:"sdp_monthly_interest"`
	Budget               *deployment.Budget         `json:"budget,omitempty"`
	Savings              *deployment.SavingsTracker `json:"savings,omitempty"`
	Queue                syncqueue.Stats            `json:"queue"`
	CompletedDeployments int                        `json:"completed_deployments"`
}

// ActiveDeployment returns the active deployment with its phase as of
// now, or nil.
func (m *Manager) ActiveDeployment() *deployment.Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.view().Active
}

// Budget returns the deployment budget, or nil.
func (m *Manager) Budget() *deployment.Budget {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.view().Budget
}

// SavingsTracker returns the savings tracker with days remaining as of
// now, or nil.
func (m *Manager) SavingsTracker() *deployment.SavingsTracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.view().Tracker
}

// Countdown returns the countdown for the active deployment, or nil.
func (m *Manager) Countdown() *deployment.Countdown {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Active == nil {
		return nil
	}
	c := deployment.ComputeCountdown(m.state.Active, m.clock.Now())
	return &c
}

// Summary returns an overview of the active deployment, or nil.
func (m *Manager) Summary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.view()
	if st.Active == nil {
		return nil
	}
	adj := st.Active.PayAdjustments
	return &Summary{
		Deployment:           st.Active,
		Countdown:            deployment.ComputeCountdown(st.Active, m.clock.Now()),
		AdditionalMonthlyPay: adj.AdditionalMonthlyPay,
		EstimatedTaxSavings:  adj.EstimatedTaxSavings,
		SDPMonthlyInterest:   deployment.EstimateSDPInterest(adj, m.tables.PayRates),
		Budget:               st.Budget,
		Savings:              st.Tracker,
		Queue:                m.queue.Stats(),
		CompletedDeployments: len(st.History),
	}
}

// IsDeployed reports whether the active deployment is in the deployment
// or redeployment phase right now.
func (m *Manager) IsDeployed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Active == nil {
		return false
	}
	return deployment.ClassifyInfo(m.state.Active, m.clock.Now()).Deployed()
}

// DeploymentDuration returns the active deployment's planned length in
// days, or zero.
func (m *Manager) DeploymentDuration() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Active == nil {
		return 0
	}
	return m.state.Active.DurationDays()
}

// ProjectedSavings returns the budget's projected total savings, or zero
// without a budget.
func (m *Manager) ProjectedSavings() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b := m.view().Budget; b != nil {
		return b.ProjectedTotalSavings
	}
	return decimal.Zero
}

// DeploymentHistory returns ended deployments, oldest first, with phases
// as of now.
func (m *Manager) DeploymentHistory() []deployment.Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	out := make([]deployment.Info, 0, len(m.state.History))
	for i := range m.state.History {
		info := m.state.History[i].Clone()
		info.Phase = deployment.ClassifyInfo(info, now)
		out = append(out, *info)
	}
	return out
}

// DeploymentByID finds a deployment, active or historical.
func (m *Manager) DeploymentByID(id string) (*deployment.Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.view()
	if st.Active != nil && st.Active.ID == id {
		return st.Active, true
	}
	now := m.clock.Now()
	for i := range st.History {
		if st.History[i].ID == id {
			info := st.History[i].Clone()
			info.Phase = deployment.ClassifyInfo(info, now)
			return info, true
		}
	}
	return nil, false
}
