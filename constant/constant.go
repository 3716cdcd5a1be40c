package constant

type AssetStatus string

const (
	AssetStatusPending    AssetStatus = "pending"
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusCompleted  AssetStatus = "completed"
	AssetStatusError      AssetStatus = "error"
)

// Terminal reports whether no further status transition is allowed.
func (s AssetStatus) Terminal() bool {
	return s == AssetStatusCompleted || s == AssetStatusError
}

type AssetType string

const (
	AssetTypeVideo AssetType = "video"
	AssetTypeAudio AssetType = "audio"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
