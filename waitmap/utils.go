package waitmap

func zeroValue[V any]() V {
	var v V
	return v
}

// nextPowerOfTwo rounds n up to the nearest power of two. Shard routing
// masks the hash with shardCount-1, which only works for powers of two.
func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
