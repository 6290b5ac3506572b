package domain

// SLATier is the named SLA class derived from priority.
type SLATier string

const (
	SLATierBronze   SLATier = "BRONZE"
	SLATierSilver   SLATier = "SILVER"
	SLATierGold     SLATier = "GOLD"
	SLATierPlatinum SLATier = "PLATINUM"
)

// SLAStatus is the live standing of an open ticket against its deadline.
type SLAStatus string

const (
	SLAStatusOnTrack  SLAStatus = "ON_TRACK"
	SLAStatusAtRisk   SLAStatus = "AT_RISK"
	SLAStatusBreached SLAStatus = "BREACHED"
)

// Valid reports whether the status is one of the three known values.
func (s SLAStatus) Valid() bool {
	switch s {
	case SLAStatusOnTrack, SLAStatusAtRisk, SLAStatusBreached:
		return true
	}
	return false
}
