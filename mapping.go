package gridwarp

// mapping.go assigns logical processes to partitions for runs that spread a
// model across several workers.  Assignment is by contiguous block: with n
// logical processes over p partitions, each partition holds n/p consecutive
// ids.  DummyPadding reports how many padding services a model needs so the
// block size divides evenly.

// BlockMapping returns the partition assignment function for nlp logical
// processes over nparts partitions.  nlp must be a multiple of nparts; pad
// the model with dummies first if it is not.
func BlockMapping(nlp, nparts int) func(lpid int) int {
	if nparts < 1 || nlp < nparts || nlp%nparts != 0 {
		panic("block mapping requires the partition count to divide the process count")
	}
	block := nlp / nparts
	return func(lpid int) int {
		if lpid < 0 || lpid >= nlp {
			panic("logical process id outside the mapped range")
		}
		return lpid / block
	}
}

// DummyPadding reports how many dummy services bring nlp up to a multiple of
// nparts.
func DummyPadding(nlp, nparts int) int {
	if nparts < 1 {
		panic("partition count must be positive")
	}
	rem := nlp % nparts
	if rem == 0 {
		return 0
	}
	return nparts - rem
}
