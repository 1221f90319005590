package uploader

import "math"

// Stats summarizes a set of timing samples, in seconds. Std is the sample
// standard deviation, defined as 0 when fewer than two samples exist.
type Stats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Std  float64 `json:"std"`
}

// UploadStatistics carries per-phase timing statistics over the successful
// uploads of one batch.
type UploadStatistics struct {
	Metadata Stats `json:"metadata_upload_time"`
	Blob     Stats `json:"blob_upload_time"`
}

func statisticsFor(ok []Result) UploadStatistics {
	metaTimes := make([]float64, 0, len(ok))
	blobTimes := make([]float64, 0, len(ok))
	for _, r := range ok {
		metaTimes = append(metaTimes, r.MetadataElapsed.Seconds())
		blobTimes = append(blobTimes, r.BlobElapsed.Seconds())
	}
	return UploadStatistics{
		Metadata: computeStats(metaTimes),
		Blob:     computeStats(blobTimes),
	}
}

func computeStats(samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	s := Stats{Min: samples[0], Max: samples[0]}
	var sum float64
	for _, v := range samples {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(samples))

	if len(samples) > 1 {
		var sq float64
		for _, v := range samples {
			sq += (v - s.Mean) * (v - s.Mean)
		}
		s.Std = math.Sqrt(sq / float64(len(samples)-1))
	}
	return s
}
