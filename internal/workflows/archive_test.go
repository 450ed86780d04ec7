package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/usecases"
)

type ArchiveWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
}

func TestArchiveWorkflowSuite(t *testing.T) {
	suite.Run(t, new(ArchiveWorkflowSuite))
}

func (s *ArchiveWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterWorkflow(ArchiveCaptureWorkflow)
	s.env.RegisterActivity(&ArchiveActivities{})
}

func (s *ArchiveWorkflowSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func testInput() ArchiveInput {
	return ArchiveInput{
		UserID: "user-1",
		Request: domain.CaptureRequest{
			ViewParameters: domain.ViewParameters{Lat: 48.8584, Lng: 2.2945, Heading: 90, Zoom: 1},
		},
		PlaceName: "Paris, France",
	}
}

func (s *ArchiveWorkflowSuite) captured() *CapturedImage {
	return &CapturedImage{
		Data:     []byte{0xff, 0xd8, 0xff},
		MimeType: "image/jpeg",
		Metadata: domain.CaptureMetadata{Lat: 48.8584, Lng: 2.2945, Heading: 90, FOV: 60, CapturedAt: time.Unix(1700000000, 0).UTC()},
	}
}

func (s *ArchiveWorkflowSuite) TestHappyPath() {
	upload := &UploadedCapture{Key: "captures/streetview-1.jpg", URL: "https://cdn.example/captures/streetview-1.jpg"}

	s.env.OnActivity(ActivityCaptureImage, mock.Anything, mock.Anything).Return(s.captured(), nil).Once()
	s.env.OnActivity(ActivityUploadCapture, mock.Anything, mock.Anything).Return(upload, nil).Once()
	s.env.OnActivity(ActivityRecordPhoto, mock.Anything, mock.Anything).Return(
		func(_ context.Context, p domain.Photo) (*domain.Photo, error) {
			p.ID = 42
			return &p, nil
		}).Once()
	s.env.OnActivity(ActivityPublishCaptured, mock.Anything, mock.Anything).Return(nil).Once()

	s.env.ExecuteWorkflow(ArchiveCaptureWorkflow, testInput())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result ArchiveResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(int64(42), result.PhotoID)
	s.Equal(upload.Key, result.StoragePath)
	s.Equal(upload.URL, result.ImageURL)
}

func (s *ArchiveWorkflowSuite) TestRecordFailureDeletesUpload() {
	upload := &UploadedCapture{Key: "captures/streetview-2.jpg", URL: "https://cdn.example/captures/streetview-2.jpg"}

	s.env.OnActivity(ActivityCaptureImage, mock.Anything, mock.Anything).Return(s.captured(), nil).Once()
	s.env.OnActivity(ActivityUploadCapture, mock.Anything, mock.Anything).Return(upload, nil).Once()
	s.env.OnActivity(ActivityRecordPhoto, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	s.env.OnActivity(ActivityDeleteUpload, mock.Anything, upload.Key).Return(nil).Once()

	s.env.ExecuteWorkflow(ArchiveCaptureWorkflow, testInput())

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *ArchiveWorkflowSuite) TestPublishFailureStillCompletes() {
	upload := &UploadedCapture{Key: "captures/streetview-3.jpg", URL: "u"}

	s.env.OnActivity(ActivityCaptureImage, mock.Anything, mock.Anything).Return(s.captured(), nil).Once()
	s.env.OnActivity(ActivityUploadCapture, mock.Anything, mock.Anything).Return(upload, nil).Once()
	s.env.OnActivity(ActivityRecordPhoto, mock.Anything, mock.Anything).Return(&domain.Photo{ID: 7, StoragePath: upload.Key}, nil).Once()
	s.env.OnActivity(ActivityPublishCaptured, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	s.env.ExecuteWorkflow(ArchiveCaptureWorkflow, testInput())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ArchiveWorkflowSuite) TestCaptureFailureSkipsUpload() {
	s.env.OnActivity(ActivityCaptureImage, mock.Anything, mock.Anything).Return(nil, errors.New("upstream 500"))

	s.env.ExecuteWorkflow(ArchiveCaptureWorkflow, testInput())

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func TestCaptureImage_ValidationIsNotRetryable(t *testing.T) {
	env := (&testsuite.WorkflowTestSuite{}).NewTestActivityEnvironment()
	acts := &ArchiveActivities{Captures: usecases.NewCaptureService(nil, nil, nil, nil)}
	env.RegisterActivity(acts)

	input := testInput()
	input.Request.Lat = 120
	_, err := env.ExecuteActivity(acts.CaptureImage, input)
	require.Error(t, err)
	require.Contains(t, err.Error(), string(domain.KindValidation))
}
