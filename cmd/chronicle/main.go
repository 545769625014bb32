// Chronicle is the data lifecycle service for family life-story projects.
//
// It owns the archival side of a project's life: building downloadable
// export artifacts (zip archives or flat JSON documents) and enforcing
// retention policies over aged-out data.
//
// Usage:
//
//	# Start the lifecycle daemon with default configuration
//	chronicle run
//
//	# Start with a custom configuration file
//	chronicle run --config /etc/chronicle/config.yaml
//
//	# Request an export and poll it
//	chronicle export create --project proj-1 --facilitator user-1 --audio --transcripts
//	chronicle export status <export-id>
//
//	# Run retention policies once, immediately
//	chronicle retention run
//
//	# Show the effective retention policy set
//	chronicle retention policies
//
//	# Show version information
//	chronicle version
package main

func main() {
	Execute()
}
