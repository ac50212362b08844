package version

// Set at build time with -ldflags "-X github.com/redjax/syncrun/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	RepoUser = "redjax"
	RepoName = "syncrun"
	RepoUrl  = "https://github.com/redjax/syncrun"
	Package  = "syncrun"
)

type PackageInfo struct {
	PackageName        string
	RepoUrl            string
	PackageVersion     string
	PackageCommit      string
	PackageReleaseDate string
}

// GetPackageInfo returns a struct with information about the current package
func GetPackageInfo() PackageInfo {
	return PackageInfo{
		PackageName:        Package,
		RepoUrl:            RepoUrl,
		PackageVersion:     Version,
		PackageCommit:      Commit,
		PackageReleaseDate: Date,
	}
}

// String renders the package info on one line.
func (p PackageInfo) String() string {
	return p.PackageName + " version:" + p.PackageVersion + " commit:" + p.PackageCommit + " date:" + p.PackageReleaseDate
}
