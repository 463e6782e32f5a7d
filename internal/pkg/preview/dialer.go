package preview

import (
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

var ErrForbiddenAddress = errors.New("preview: destination address is not allowed")

// 运营商级 NAT 地址段，netip 没有对应的判断方法
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// publicOnly 在建立连接前检查解析后的目标地址，重定向与 DNS 重绑定同样会经过这里
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errors.Wrap(err, "split dial address")
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return errors.Wrap(err, "parse dial address")
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() ||
		sharedAddressSpace.Contains(addr) {
		return errors.Wrapf(ErrForbiddenAddress, "%s", addr)
	}
	return nil
}

// newTransport 不走环境代理，否则地址检查只能看到代理本身
func newTransport(timeout time.Duration, allowPrivate bool) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = publicOnly
	}
	return &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: time.Second,
	}
}
