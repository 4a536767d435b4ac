package version

// Set with -ldflags "-X github.com/yurifrl/caixa/pkg/version.Version=1.0.0".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func String() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}
