package ports

// Hasher computes content digests of declared step inputs.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// DigestInput resolves input (a file, directory, or glob pattern
	// relative to root) and returns a stable hex digest of its content.
	DigestInput(root, input string) (string, error)
}
