package services

// Size thresholds for the deliverability signal, in bytes of encoded output.
// Mail providers clip messages at roughly 200 KiB, so anything at or above
// HardSizeThreshold will be cut; SoftSizeThreshold is an early warning.
const (
	HardSizeThreshold = 204800 // 200 KiB
	SoftSizeThreshold = 104448 // 102 KiB
)

// SizeStatus classifies a document's byte length against the thresholds.
type SizeStatus string

const (
	SizeOK   SizeStatus = "ok"
	SizeSoft SizeStatus = "soft"
	SizeHard SizeStatus = "hard"
)

// ClassifySize is a pure function of the byte length. It is applied
// identically wherever size is surfaced: rewrite results and pre-submission
// checks on raw pasted or uploaded content.
func ClassifySize(byteLen int) SizeStatus {
	switch {
	case byteLen >= HardSizeThreshold:
		return SizeHard
	case byteLen >= SoftSizeThreshold:
		return SizeSoft
	default:
		return SizeOK
	}
}
