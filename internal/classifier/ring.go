package classifier

// RingFloat 固定容量的 float64 环形缓冲区，满时覆盖最旧的值
type RingFloat struct {
	data []float64
	pos  int
	full bool
	cap  int
}

// NewRingFloat 创建指定容量的环形缓冲区
func NewRingFloat(capacity int) *RingFloat {
	if capacity < 1 {
		capacity = 1
	}
	return &RingFloat{
		data: make([]float64, capacity),
		cap:  capacity,
	}
}

// Push 追加一个值
func (r *RingFloat) Push(v float64) {
	r.data[r.pos] = v
	r.pos++
	if r.pos >= r.cap {
		r.pos = 0
		r.full = true
	}
}

// Len 当前元素个数
func (r *RingFloat) Len() int {
	if r.full {
		return r.cap
	}
	return r.pos
}

// Cap 容量
func (r *RingFloat) Cap() int {
	return r.cap
}

// Slice 按插入顺序返回内容副本
func (r *RingFloat) Slice() []float64 {
	n := r.Len()
	out := make([]float64, n)
	if r.full {
		copy(out, r.data[r.pos:])
		copy(out[r.cap-r.pos:], r.data[:r.pos])
	} else {
		copy(out, r.data[:r.pos])
	}
	return out
}

// Clear 清空缓冲区
func (r *RingFloat) Clear() {
	r.pos = 0
	r.full = false
}
