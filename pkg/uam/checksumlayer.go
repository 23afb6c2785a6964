package uam

import "hash/crc32"

// ChecksumLayer is a minimal, dependency-free SafetyLayer: it
// increments MonitoringNumber by one per cycle and computes CRC over
// SafetyData+NonSafetyData using the stdlib IEEE polynomial. It does
// not implement freshness windows, id negotiation or any of the real
// safety protocol's cross-checks — those live in the actual Safety
// Layer this package treats as opaque. Useful for tests and as a
// default when no production Safety Layer is wired in.
type ChecksumLayer struct{}

func (ChecksumLayer) ExecuteProvider(req *SPDU, safetyData, nonSafetyData []byte, resp *SPDU) error {
	resp.MonitoringNumber++
	resp.CRC = uint16(crc32.ChecksumIEEE(append(append([]byte{}, safetyData...), nonSafetyData...)))
	if req != nil {
		resp.IDHigh, resp.IDMid, resp.IDLow = req.IDHigh, req.IDMid, req.IDLow
	}
	return nil
}

func (ChecksumLayer) ExecuteConsumer(resp *SPDU, req *SPDU) error {
	req.MonitoringNumber++
	req.CRC = uint16(crc32.ChecksumIEEE(append(append([]byte{}, req.SafetyData...), req.NonSafetyData...)))
	if resp != nil {
		req.IDHigh, req.IDMid, req.IDLow = resp.IDHigh, resp.IDMid, resp.IDLow
	}
	return nil
}
