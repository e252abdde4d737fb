package core

// Storage engines understood by the storage layer.
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
	EngineMongo    = "mongo"
	EngineMemory   = "memory"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
