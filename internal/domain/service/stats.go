package service

import "github.com/GriffinCanCode/capgate/internal/shared/types"

// Stats aggregates the registry contents
type Stats struct {
	Total      int              `json:"total"`
	Active     int              `json:"active"`
	Inactive   int              `json:"inactive"`
	Error      int              `json:"error"`
	ServerSide int              `json:"serverSide"`
	Local      int              `json:"local"`
	Services   []ServiceSummary `json:"services"`
}

// ServiceSummary is one row of Stats.Services
type ServiceSummary struct {
	Name         string         `json:"name"`
	Status       types.Status   `json:"status"`
	Location     types.Location `json:"location"`
	Capabilities int            `json:"capabilities"`
}

// Stats returns counts computed under one read lock, so they always add up
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Services: make([]ServiceSummary, 0, len(r.order))}
	for _, name := range r.order {
		desc := r.descriptors[name]
		stats.Total++

		switch desc.Status {
		case types.StatusActive:
			stats.Active++
		case types.StatusInactive:
			stats.Inactive++
		case types.StatusError:
			stats.Error++
		}

		if desc.Location == types.LocationServer {
			stats.ServerSide++
		} else {
			stats.Local++
		}

		stats.Services = append(stats.Services, ServiceSummary{
			Name:         name,
			Status:       desc.Status,
			Location:     desc.Location,
			Capabilities: len(desc.Capabilities),
		})
	}
	return stats
}
