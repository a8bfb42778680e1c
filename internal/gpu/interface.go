package gpu

// TemperatureReader reads the core temperature of every GPU on the host, in
// device index order
type TemperatureReader interface {
	Temperatures() ([]int, error)
	Close() error
}
