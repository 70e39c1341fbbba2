package transport

import "sync/atomic"

// Metrics contains atomic counters of a Handle.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// OpenCount indicates the number of successful opens.
	OpenCount atomic.Uint64
	// OpenErrCount indicates the number of failed or abandoned opens.
	OpenErrCount atomic.Uint64
	// BytesWritten indicates the number of bytes written to the device.
	BytesWritten atomic.Uint64
	// BytesRead indicates the number of bytes read from the device.
	BytesRead atomic.Uint64
	// TimeoutCount indicates the number of reads that ran into their deadline.
	TimeoutCount atomic.Uint64
	// IOErrCount indicates the number of failed reads and writes.
	IOErrCount atomic.Uint64
}

func (m *Metrics) incOpenCount() {
	m.OpenCount.Add(1)
}

func (m *Metrics) incOpenErrCount() {
	m.OpenErrCount.Add(1)
}

func (m *Metrics) addBytesWritten(n int) {
	m.BytesWritten.Add(uint64(n)) //nolint:gosec
}

func (m *Metrics) addBytesRead(n int) {
	m.BytesRead.Add(uint64(n)) //nolint:gosec
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *Metrics) incIOErrCount() {
	m.IOErrCount.Add(1)
}
