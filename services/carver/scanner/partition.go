package scanner

import "fmt"

// WorkerRange is one worker's share of the buffer.
//
// [PrimaryStart, PrimaryEnd) is the span the worker owns: it reports exactly the
// matches that start there. [PrimaryEnd, ScanEnd) is the overlap tail; the worker reads
// it only so that a signature starting just before PrimaryEnd can be compared in full.
type WorkerRange struct {
	ID           int `json:"id"`
	PrimaryStart int `json:"primary_start"`
	PrimaryEnd   int `json:"primary_end"`
	ScanEnd      int `json:"scan_end"`
}

// Empty reports whether the worker owns no bytes.
func (r WorkerRange) Empty() bool { return r.PrimaryStart == r.PrimaryEnd }

// PrimaryLen is the number of owned bytes.
func (r WorkerRange) PrimaryLen() int { return r.PrimaryEnd - r.PrimaryStart }

// Overlap is the length of the read-only tail past PrimaryEnd.
func (r WorkerRange) Overlap() int { return r.ScanEnd - r.PrimaryEnd }

// PartitionPlan holds one range per worker, ordered by ID.
type PartitionPlan []WorkerRange

// Plan splits [0, fileSize) into workerCount contiguous primary ranges.
//
// Every worker but the last gets floor(fileSize/workerCount) bytes; the remainder goes
// entirely to the last worker. Uneven but trivial to audit, and nothing is dropped.
// Each range reads maxSignatureLength-1 bytes past its end, clamped to fileSize, which
// is the most a signature starting at PrimaryEnd-1 can need.
//
// fileSize 0 and workerCount > fileSize are valid and produce empty ranges.
func Plan(fileSize, workerCount, maxSignatureLength int) (PartitionPlan, error) {
	if workerCount < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, workerCount)
	}
	if fileSize < 0 {
		panic(fmt.Sprintf("scanner: negative file size %d", fileSize))
	}
	if maxSignatureLength < 1 {
		panic(fmt.Sprintf("scanner: signature length %d < 1", maxSignatureLength))
	}
	chunk := fileSize / workerCount
	plan := make(PartitionPlan, workerCount)
	for i := range plan {
		start := i * chunk
		end := start + chunk
		if i == workerCount-1 {
			end = fileSize
		}
		plan[i] = WorkerRange{
			ID:           i,
			PrimaryStart: start,
			PrimaryEnd:   end,
			ScanEnd:      min(fileSize, end+maxSignatureLength-1),
		}
	}
	return plan, nil
}
