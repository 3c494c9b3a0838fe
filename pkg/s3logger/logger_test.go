package s3logger

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/boogy/drinks-warden/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockS3Client is a mock implementation of the S3 PutObject API
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func gunzip(t *testing.T, r io.Reader) string {
	t.Helper()
	zr, err := gzip.NewReader(r)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

func enabledConfig() *config.Config {
	return &config.Config{LogToS3: true, LogBucket: "logs", LogPrefix: "/drinks/"}
}

var fixedTime = time.Date(2026, 7, 4, 9, 5, 3, 0, time.UTC)

func TestFlushUploadsGzippedBuffer(t *testing.T) {
	client := new(MockS3Client)
	l, err := New(context.Background(), enabledConfig(), WithClient(client), WithClock(func() time.Time { return fixedTime }))
	require.NoError(t, err)

	var key, body string
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "logs" && *in.ContentEncoding == "gzip"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		key = *in.Key
		body = gunzip(t, in.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	_, _ = l.Write([]byte(`{"msg":"one"}` + "\n"))
	_, _ = l.Write([]byte(`{"msg":"two"}` + "\n"))
	require.NoError(t, l.Flush(context.Background()))

	assert.Equal(t, "{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n", body)
	assert.Regexp(t, regexp.MustCompile(`^drinks/2026/07/04/[0-9a-f-]{36}-20260704-090503\.json\.gz$`), key)

	// Nothing buffered, nothing uploaded
	require.NoError(t, l.Flush(context.Background()))
	client.AssertExpectations(t)
}

func TestFlushKeepsBufferOnFailure(t *testing.T) {
	client := new(MockS3Client)
	l, err := New(context.Background(), enabledConfig(), WithClient(client))
	require.NoError(t, err)

	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	var body string
	client.On("PutObject", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		body = gunzip(t, args.Get(1).(*s3.PutObjectInput).Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	_, _ = l.Write([]byte("first\n"))
	assert.Error(t, l.Flush(context.Background()))

	_, _ = l.Write([]byte("second\n"))
	require.NoError(t, l.Flush(context.Background()))
	assert.Equal(t, "first\nsecond\n", body)
}

func TestDisabledLoggerDiscards(t *testing.T) {
	client := new(MockS3Client)
	l, err := New(context.Background(), &config.Config{}, WithClient(client))
	require.NoError(t, err)
	assert.False(t, l.Enabled())

	n, err := l.Write([]byte("ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	require.NoError(t, l.Flush(context.Background()))

	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestRunFlushesWhenThresholdReached(t *testing.T) {
	client := new(MockS3Client)
	l, err := New(context.Background(), enabledConfig(), WithClient(client), WithFlushThreshold(8))
	require.NoError(t, err)

	uploaded := make(chan string, 4)
	client.On("PutObject", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		uploaded <- gunzip(t, args.Get(1).(*s3.PutObjectInput).Body)
	}).Return(&s3.PutObjectOutput{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Hour)
		close(done)
	}()

	_, _ = l.Write([]byte("0123456789\n"))
	select {
	case got := <-uploaded:
		assert.Equal(t, "0123456789\n", got)
	case <-time.After(2 * time.Second):
		t.Fatal("threshold did not trigger a flush")
	}

	_, _ = l.Write([]byte("tail\n"))
	cancel()
	<-done

	select {
	case got := <-uploaded:
		assert.Equal(t, "tail\n", got)
	default:
		t.Fatal("final flush did not run")
	}
}

func TestCompressGzip(t *testing.T) {
	data, err := compressGzip([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", gunzip(t, bytes.NewReader(data)))
}
