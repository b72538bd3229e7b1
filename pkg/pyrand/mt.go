// Package pyrand воспроизводит генератор MT19937 и методы выборки в том виде,
// в каком их реализует стандартный модуль random в CPython.
//
// Расписания аккаунтов и порядок разбиения по воркерам исторически считались
// именно этим генератором, поэтому любое расхождение в сидировании или в
// алгоритме выборки молча меняет дни активности всех аккаунтов.
package pyrand

import (
	"crypto/md5"
	"encoding/binary"
	"math"
)

const (
	n         = 624
	m         = 397
	matrixA   = 0x9908b0df
	upperMask = 0x80000000
	lowerMask = 0x7fffffff
)

// Random — состояние генератора. Не потокобезопасен.
type Random struct {
	mt  [n]uint32
	mti int
}

// New создаёт генератор, засеянный так же, как random.Random(seed) для целого seed.
// key — 32-битные слова abs(seed) от младшего к старшему.
func New(key []uint32) *Random {
	r := &Random{}
	r.seedArray(key)
	return r
}

// FromInt эквивалентен random.Random(seed) для неотрицательного seed, влезающего в uint64.
func FromInt(seed uint64) *Random {
	return New(trimKey([]uint32{uint32(seed), uint32(seed >> 32)}))
}

// FromMD5 засевает генератор целым числом int(md5(data).hexdigest(), 16).
func FromMD5(data string) *Random {
	return New(MD5Key(data))
}

// MD5Key раскладывает 128-битный дайджест в слова ключа (младшее слово первым).
func MD5Key(data string) []uint32 {
	sum := md5.Sum([]byte(data))
	key := []uint32{
		binary.BigEndian.Uint32(sum[12:16]),
		binary.BigEndian.Uint32(sum[8:12]),
		binary.BigEndian.Uint32(sum[4:8]),
		binary.BigEndian.Uint32(sum[0:4]),
	}
	return trimKey(key)
}

// MD5Parity возвращает int(md5(data).hexdigest(), 16) % 2.
func MD5Parity(data string) int {
	sum := md5.Sum([]byte(data))
	return int(sum[len(sum)-1] & 1)
}

// trimKey отбрасывает старшие нулевые слова: CPython использует ровно
// столько слов, сколько бит в числе, но не меньше одного.
func trimKey(key []uint32) []uint32 {
	for len(key) > 1 && key[len(key)-1] == 0 {
		key = key[:len(key)-1]
	}
	if len(key) == 0 {
		return []uint32{0}
	}
	return key
}

func (r *Random) seedScalar(s uint32) {
	r.mt[0] = s
	for i := 1; i < n; i++ {
		r.mt[i] = 1812433253*(r.mt[i-1]^(r.mt[i-1]>>30)) + uint32(i)
	}
	r.mti = n
}

func (r *Random) seedArray(key []uint32) {
	r.seedScalar(19650218)
	i, j := 1, 0
	k := n
	if len(key) > k {
		k = len(key)
	}
	for ; k > 0; k-- {
		r.mt[i] = (r.mt[i] ^ ((r.mt[i-1] ^ (r.mt[i-1] >> 30)) * 1664525)) + key[j] + uint32(j)
		i++
		j++
		if i >= n {
			r.mt[0] = r.mt[n-1]
			i = 1
		}
		if j >= len(key) {
			j = 0
		}
	}
	for k = n - 1; k > 0; k-- {
		r.mt[i] = (r.mt[i] ^ ((r.mt[i-1] ^ (r.mt[i-1] >> 30)) * 1566083941)) - uint32(i)
		i++
		if i >= n {
			r.mt[0] = r.mt[n-1]
			i = 1
		}
	}
	r.mt[0] = 0x80000000
}

// Uint32 возвращает следующее 32-битное значение (genrand_uint32).
func (r *Random) Uint32() uint32 {
	if r.mti >= n {
		var kk int
		for kk = 0; kk < n-m; kk++ {
			y := (r.mt[kk] & upperMask) | (r.mt[kk+1] & lowerMask)
			r.mt[kk] = r.mt[kk+m] ^ (y >> 1) ^ mag01(y)
		}
		for ; kk < n-1; kk++ {
			y := (r.mt[kk] & upperMask) | (r.mt[kk+1] & lowerMask)
			r.mt[kk] = r.mt[kk+(m-n)] ^ (y >> 1) ^ mag01(y)
		}
		y := (r.mt[n-1] & upperMask) | (r.mt[0] & lowerMask)
		r.mt[n-1] = r.mt[m-1] ^ (y >> 1) ^ mag01(y)
		r.mti = 0
	}

	y := r.mt[r.mti]
	r.mti++
	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

func mag01(y uint32) uint32 {
	if y&1 == 1 {
		return matrixA
	}
	return 0
}

// Float64 повторяет random.random(): 53 бита из двух вызовов генератора.
func (r *Random) Float64() float64 {
	a := r.Uint32() >> 5
	b := r.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) * (1.0 / 9007199254740992.0)
}

// getrandbits для k <= 32.
func (r *Random) bits(k int) uint32 {
	if k <= 0 {
		return 0
	}
	return r.Uint32() >> (32 - k)
}

// Below повторяет _randbelow_with_getrandbits: равномерно в [0, limit).
// limit должен быть в пределах [1, 2^32).
func (r *Random) Below(limit int) int {
	if limit <= 0 {
		return 0
	}
	k := bitLength(uint32(limit))
	v := r.bits(k)
	for int(v) >= limit {
		v = r.bits(k)
	}
	return int(v)
}

// IntRange повторяет randint(lo, hi) включительно.
func (r *Random) IntRange(lo, hi int) int {
	return lo + r.Below(hi-lo+1)
}

// Sample повторяет sample(range(population), k). Возвращает индексы в
// порядке выбора; k больше population обрезается.
func (r *Random) Sample(population, k int) []int {
	if k > population {
		k = population
	}
	if k <= 0 {
		return []int{}
	}
	result := make([]int, k)

	setsize := 21
	if k > 5 {
		setsize += int(math.Pow(4, math.Ceil(math.Log(float64(k*3))/math.Log(4))))
	}
	if population <= setsize {
		pool := make([]int, population)
		for i := range pool {
			pool[i] = i
		}
		for i := 0; i < k; i++ {
			j := r.Below(population - i)
			result[i] = pool[j]
			pool[j] = pool[population-i-1]
		}
		return result
	}

	selected := make(map[int]struct{}, k)
	for i := 0; i < k; i++ {
		j := r.Below(population)
		for {
			if _, ok := selected[j]; !ok {
				break
			}
			j = r.Below(population)
		}
		selected[j] = struct{}{}
		result[i] = j
	}
	return result
}

// Shuffle повторяет random.shuffle: обход с конца, swap(i, randbelow(i+1)).
func (r *Random) Shuffle(length int, swap func(i, j int)) {
	for i := length - 1; i > 0; i-- {
		j := r.Below(i + 1)
		swap(i, j)
	}
}

func bitLength(v uint32) int {
	l := 0
	for v != 0 {
		l++
		v >>= 1
	}
	return l
}
