package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/internal/core"
)

func TestNewPseudoHeader(t *testing.T) {
	ph, err := NewPseudoHeader(testSrc, testDst, core.ProtocolNumberTCP, TCPMinLength, 100)
	require.NoError(t, err)

	assert.Equal(t, testSrc, ph.SrcAddr)
	assert.Equal(t, testDst, ph.DstAddr)
	assert.Equal(t, uint8(6), ph.Protocol)
	assert.Equal(t, uint16(120), ph.Length)
	assert.Equal(t, "10.0.0.1 -> 10.0.0.2 proto=6 len=120", ph.String())
}

func TestNewPseudoHeaderLengthLimit(t *testing.T) {
	_, err := NewPseudoHeader(testSrc, testDst, core.ProtocolNumberTCP, TCPMinLength, 0xffff-TCPMinLength)
	require.NoError(t, err)

	_, err = NewPseudoHeader(testSrc, testDst, core.ProtocolNumberTCP, TCPMinLength, 0xffff-TCPMinLength+1)
	assert.ErrorIs(t, err, core.ErrSegmentTooLarge)
}

func TestPseudoHeaderAccumulator(t *testing.T) {
	ph := PseudoHeader{SrcAddr: testSrc, DstAddr: testDst, Protocol: 6, Length: 20}
	acc := ph.Accumulator()
	// 0x0a00 + 0x0001 + 0x0a00 + 0x0002 + 6 + 20
	assert.Equal(t, uint32(0x141d), acc.Sum())
}

func TestBindFromIPv4(t *testing.T) {
	ip := NewIPv4Header(testSrc, testDst)
	tcp := NewTCPHeader(443, 51000)
	tcp.SetFlag(TCPFlagSyn)

	BindFromIPv4(tcp, ip, 0)
	require.True(t, tcp.Bound())

	direct := NewTCPHeader(443, 51000)
	direct.SetFlag(TCPFlagSyn)
	direct.SetPseudoHeader(testSrc, testDst, 0)

	assert.Equal(t, direct.Make(), tcp.Make())
}
