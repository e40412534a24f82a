// Package mock provides a testify mock of telegram.Client
//
// Usage in tests:
//
//	client := mock.NewClient(t)
//	client.On("Upload", testifymock.Anything, file, 8, testifymock.Anything).Return(&tg.InputFileBig{}, nil)
package mock

import (
	"context"

	"github.com/gotd/td/tg"
	testifymock "github.com/stretchr/testify/mock"

	"github.com/fastupload/tgupbench/internal/scan"
	"github.com/fastupload/tgupbench/internal/telegram"
)

// Client is a mock implementation of telegram.Client
type Client struct {
	testifymock.Mock
}

var _ telegram.Client = (*Client)(nil)

// NewClient creates a mock whose expectations are asserted when the test ends
func NewClient(t interface {
	testifymock.TestingT
	Cleanup(func())
}) *Client {
	m := &Client{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Upload reports every byte as uploaded before returning, unless the
// expectation's Run replaces that behaviour.
func (m *Client) Upload(ctx context.Context, file scan.VideoFile, connections int, onProgress telegram.ProgressFunc) (tg.InputFileClass, error) {
	args := m.Called(ctx, file, connections, onProgress)

	var handle tg.InputFileClass
	if v := args.Get(0); v != nil {
		handle = v.(tg.InputFileClass)
	}
	err := args.Error(1)
	if err == nil && onProgress != nil {
		onProgress(file.Size, file.Size)
	}
	return handle, err
}

func (m *Client) SendVideo(ctx context.Context, peer tg.InputPeerClass, handle tg.InputFileClass, file scan.VideoFile) error {
	args := m.Called(ctx, peer, handle, file)
	return args.Error(0)
}
