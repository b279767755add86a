package entities

// TournamentStatus is the lifecycle state of a bracket
type TournamentStatus string

const (
	TournamentRegistering TournamentStatus = "REGISTERING"
	TournamentInProgress  TournamentStatus = "IN_PROGRESS"
	TournamentCompleted   TournamentStatus = "COMPLETED"
	TournamentCancelled   TournamentStatus = "CANCELLED"
)

// TournamentCapacity is the fixed bracket size
const TournamentCapacity = 8
