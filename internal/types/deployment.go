package types

// ProjectFile is one file of a deployable project.
type ProjectFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ProjectBundle is the file set handed to a deployment provider.
type ProjectBundle struct {
	Name          string        `json:"name"`
	Files         []ProjectFile `json:"files"`
	RepositoryURL string        `json:"repository_url,omitempty"`
	ArchiveKey    string        `json:"archive_key,omitempty"`
}

// File returns the file at path, if present.
func (b *ProjectBundle) File(path string) (ProjectFile, bool) {
	for _, f := range b.Files {
		if f.Path == path {
			return f, true
		}
	}
	return ProjectFile{}, false
}

// DeploymentResult is the artifact of the deploy stage.
type DeploymentResult struct {
	Target        string `json:"target"`
	URL           string `json:"url"`
	ProviderJobID string `json:"provider_job_id"`
	RepositoryURL string `json:"repository_url,omitempty"`
	ArchiveKey    string `json:"archive_key,omitempty"`
}
