package ragblade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ragblade/vector"
	"github.com/flarexio/ragblade/vector/vectortest"
)

const testDimension = 64

func newTestService(embedder vector.Embedder) (Service, error) {
	cfg := Config{
		Backend: BackendChromem,
		Vector: vector.Config{
			Collection: "docs",
			Dimension:  testDimension,
		},
	}

	db, err := NewVectorDB(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return NewService(context.Background(), cfg, db, embedder)
}

type ragBladeTestSuite struct {
	suite.Suite
	embedder *vectortest.BagOfWords
	svc      Service
}

func (suite *ragBladeTestSuite) SetupTest() {
	suite.embedder = &vectortest.BagOfWords{Dimension: testDimension}

	svc, err := newTestService(suite.embedder)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.svc = svc
}

func (suite *ragBladeTestSuite) TearDownTest() {
	if suite.svc != nil {
		suite.svc.Close()
	}
}

func (suite *ragBladeTestSuite) TestAddDocuments() {
	ctx := context.Background()

	ids, err := suite.svc.AddDocuments(ctx, []Document{
		{Content: "hello world"},
		{Content: "goodbye moon", Metadata: vector.Metadata{"lang": "en"}},
		{ID: "custom", Content: "lorem ipsum"},
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{DocumentID("hello world"), DocumentID("goodbye moon"), "custom"}, ids)

	count, err := suite.svc.Count(ctx)
	suite.NoError(err)
	suite.Equal(3, count)
}

func (suite *ragBladeTestSuite) TestAddDocumentsSkipsDuplicates() {
	ctx := context.Background()

	ids, err := suite.svc.AddDocuments(ctx, []Document{
		{Content: "hello world"},
		{Content: "hello world"},
	})
	suite.Require().NoError(err)
	suite.Len(ids, 1)

	calls := suite.embedder.Calls

	ids, err = suite.svc.AddDocuments(ctx, []Document{
		{Content: "hello world"},
		{Content: "new document"},
	})
	suite.Require().NoError(err)
	suite.Equal([]string{DocumentID("new document")}, ids)
	suite.Equal(calls+1, suite.embedder.Calls)

	ids, err = suite.svc.AddDocuments(ctx, []Document{{Content: "hello world"}})
	suite.Require().NoError(err)
	suite.Empty(ids)

	count, err := suite.svc.Count(ctx)
	suite.NoError(err)
	suite.Equal(2, count)
}

func (suite *ragBladeTestSuite) TestAddDocumentsEmptyContent() {
	_, err := suite.svc.AddDocuments(context.Background(), []Document{{Content: "  "}})
	suite.ErrorIs(err, ErrEmptyDocument)
	suite.ErrorIs(err, vector.ErrInput)
}

func (suite *ragBladeTestSuite) TestQuery() {
	ctx := context.Background()

	_, err := suite.svc.AddDocuments(ctx, []Document{
		{Content: "hello world"},
		{Content: "goodbye moon"},
		{Content: "lorem ipsum"},
		{Content: "red apple"},
		{Content: "green apple"},
		{Content: "apple pie"},
	})
	suite.Require().NoError(err)

	results, err := suite.svc.Query(ctx, "hello", 1, nil)
	suite.Require().NoError(err)
	suite.Equal([]string{"hello world"}, results)

	results, err = suite.svc.Query(ctx, "apple", 0, nil)
	suite.Require().NoError(err)
	suite.Len(results, DefaultK)

	_, err = suite.svc.Query(ctx, "", 1, nil)
	suite.ErrorIs(err, ErrEmptyQuery)
}

func (suite *ragBladeTestSuite) TestListIDs() {
	ctx := context.Background()

	ids, err := suite.svc.AddDocuments(ctx, []Document{
		{ID: "b", Content: "second"},
		{ID: "a", Content: "first"},
	})
	suite.Require().NoError(err)
	suite.Len(ids, 2)

	listed, err := suite.svc.ListIDs(ctx, vector.GetOptions{})
	suite.Require().NoError(err)
	suite.Equal([]string{"a", "b"}, listed)
}

func (suite *ragBladeTestSuite) TestReset() {
	ctx := context.Background()

	_, err := suite.svc.AddDocuments(ctx, []Document{{Content: "hello world"}})
	suite.Require().NoError(err)

	err = suite.svc.Reset(ctx, false)
	suite.ErrorIs(err, ErrResetNotConfirmed)

	count, err := suite.svc.Count(ctx)
	suite.NoError(err)
	suite.Equal(1, count)

	suite.Require().NoError(suite.svc.SetCollection(ctx, "renamed"))
	suite.Require().NoError(suite.svc.Reset(ctx, true))

	count, err = suite.svc.Count(ctx)
	suite.NoError(err)
	suite.Equal(0, count)

	err = suite.svc.SetCollection(ctx, "")
	suite.ErrorIs(err, vector.ErrInvalidCollectionName)
}

func TestRAGBladeTestSuite(t *testing.T) {
	suite.Run(t, new(ragBladeTestSuite))
}

func TestNewServiceWithoutVectorDB(t *testing.T) {
	assert := assert.New(t)

	_, err := NewService(context.Background(), Config{}, nil, nil)
	assert.ErrorIs(err, ErrVectorDBNotSet)
}

func TestNewVectorDBUnsupportedBackend(t *testing.T) {
	assert := assert.New(t)

	_, err := NewVectorDB(context.Background(), Config{Backend: "faiss"})
	assert.ErrorIs(err, ErrUnsupportedBackend)
	assert.ErrorIs(err, vector.ErrConfiguration)
}
