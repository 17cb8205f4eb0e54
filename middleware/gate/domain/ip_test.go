package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIP(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want string
		err  bool
	}{
		{name: "ipv4", in: "1.2.3.4", want: "1.2.3.4"},
		{name: "trims spaces", in: "  10.0.0.1 ", want: "10.0.0.1"},
		{name: "mapped prefix", in: "::ffff:1.2.3.4", want: "1.2.3.4"},
		{name: "mapped prefix upper case", in: "::FFFF:5.6.7.8", want: "5.6.7.8"},
		{name: "mapped hex form", in: "::ffff:0102:0304", want: "1.2.3.4"},
		{name: "ipv6 canonical", in: "2001:DB8::0001", want: "2001:db8::1"},
		{name: "empty", in: "", err: true},
		{name: "garbage", in: "not-an-ip", err: true},
		{name: "cidr is not an address", in: "1.2.3.0/24", err: true},
		{name: "zone rejected", in: "fe80::1%eth0", err: true},
		{name: "prefix only", in: "::ffff:", err: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeIP(tc.in)
			if tc.err {
				require.ErrorIs(t, err, ErrInvalidIP)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKindBlocking(t *testing.T) {
	assert.True(t, KindIPBlock.Blocking())
	assert.True(t, KindRouteBlock.Blocking())
	assert.False(t, KindProbe.Blocking())
	assert.False(t, KindAuthFail.Blocking())
}
