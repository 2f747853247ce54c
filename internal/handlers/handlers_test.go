package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chirpsocial/backend/internal/auth"
	"github.com/chirpsocial/backend/internal/container"
	"github.com/chirpsocial/backend/internal/database/dbtest"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/realtime"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// HandlersTestSuite drives the API end to end against in-memory sqlite
type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	auth     *auth.Service
	recorder *realtime.Recorder
	alice    *models.User
	bob      *models.User
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) SetupTest() {
	suite.db = dbtest.Open(suite.T())
	suite.alice = &models.User{Username: "alice"}
	suite.bob = &models.User{Username: "bob"}
	suite.Require().NoError(suite.db.Create(suite.alice).Error)
	suite.Require().NoError(suite.db.Create(suite.bob).Error)

	suite.auth = auth.NewService([]byte("handler-test-secret"), time.Hour)
	suite.recorder = realtime.NewRecorder(suite.alice.ID, suite.bob.ID)

	c := container.New().
		WithDB(suite.db).
		WithAuthService(suite.auth).
		WithDispatcher(suite.recorder)
	suite.Require().NoError(c.Wire())

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	NewHandlers(c).SetupRoutes(suite.router, suite.auth, nil)
}

func (suite *HandlersTestSuite) token(u *models.User) string {
	tok, _, err := suite.auth.IssueToken(u.ID, u.Username)
	suite.Require().NoError(err)
	return tok
}

// do sends a request as u (nil for anonymous) and decodes the JSON body
func (suite *HandlersTestSuite) do(u *models.User, method, path string, body interface{}) (int, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+suite.token(u))
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (suite *HandlersTestSuite) postTweet(u *models.User, content string) string {
	code, body := suite.do(u, "POST", "/api/v1/tweets", map[string]interface{}{"content": content})
	suite.Require().Equal(http.StatusCreated, code, body)
	return body["id"].(string)
}

func (suite *HandlersTestSuite) TestRequiresToken() {
	code, body := suite.do(nil, "GET", "/api/v1/tweets/timeline", nil)
	suite.Equal(http.StatusUnauthorized, code)
	suite.Equal("UNAUTHORIZED", body["code"])

	req := httptest.NewRequest("GET", "/api/v1/tweets/timeline", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestCreateTweetValidation() {
	code, body := suite.do(suite.alice, "POST", "/api/v1/tweets", map[string]interface{}{"content": "   "})
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("INVALID_OPERATION", body["code"])

	code, body = suite.do(suite.alice, "POST", "/api/v1/tweets", map[string]interface{}{"content": strings.Repeat("é", 281)})
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("INVALID_OPERATION", body["code"])

	code, _ = suite.do(suite.alice, "POST", "/api/v1/tweets", map[string]interface{}{"content": strings.Repeat("é", 280)})
	suite.Equal(http.StatusCreated, code)
}

func (suite *HandlersTestSuite) TestLikeRoundTrip() {
	id := suite.postTweet(suite.alice, "hello")

	code, body := suite.do(suite.bob, "POST", "/api/v1/tweets/"+id+"/like", nil)
	suite.Require().Equal(http.StatusOK, code, body)
	suite.EqualValues(1, body["like_count"])

	code, body = suite.do(suite.bob, "POST", "/api/v1/tweets/"+id+"/like", nil)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("ALREADY_DONE", body["code"])

	code, body = suite.do(suite.bob, "GET", "/api/v1/tweets/"+id, nil)
	suite.Require().Equal(http.StatusOK, code)
	tweet := body["tweet"].(map[string]interface{})
	suite.EqualValues(1, tweet["like_count"])
	suite.Equal(true, tweet["liked"])

	code, body = suite.do(suite.bob, "POST", "/api/v1/tweets/"+id+"/unlike", nil)
	suite.Equal(http.StatusOK, code)
	suite.EqualValues(0, body["like_count"])

	code, body = suite.do(suite.bob, "POST", "/api/v1/tweets/"+id+"/unlike", nil)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("NOT_DONE", body["code"])
}

func (suite *HandlersTestSuite) TestMissingTweet() {
	code, body := suite.do(suite.bob, "POST", "/api/v1/tweets/nope/like", nil)
	suite.Equal(http.StatusNotFound, code)
	suite.Equal("NOT_FOUND", body["code"])
}

func (suite *HandlersTestSuite) TestDeleteTweetAuthorOnly() {
	id := suite.postTweet(suite.alice, "mine")

	code, body := suite.do(suite.bob, "DELETE", "/api/v1/tweets/"+id, nil)
	suite.Equal(http.StatusForbidden, code)
	suite.Equal("FORBIDDEN", body["code"])

	code, _ = suite.do(suite.alice, "DELETE", "/api/v1/tweets/"+id, nil)
	suite.Equal(http.StatusOK, code)

	code, _ = suite.do(suite.alice, "GET", "/api/v1/tweets/"+id, nil)
	suite.Equal(http.StatusNotFound, code)
}

func (suite *HandlersTestSuite) TestRetweet() {
	id := suite.postTweet(suite.alice, "share me")

	code, body := suite.do(suite.bob, "POST", "/api/v1/tweets/"+id+"/retweet", nil)
	suite.Require().Equal(http.StatusOK, code, body)
	suite.NotEmpty(body["retweet_id"])
	suite.EqualValues(1, body["retweet_count"])

	code, body = suite.do(suite.bob, "POST", "/api/v1/tweets/"+id+"/retweet", nil)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("ALREADY_DONE", body["code"])

	code, body = suite.do(suite.bob, "POST", "/api/v1/tweets/"+id+"/unretweet", nil)
	suite.Equal(http.StatusOK, code)
	suite.EqualValues(0, body["retweet_count"])
}

func (suite *HandlersTestSuite) TestFollowAndTimeline() {
	code, body := suite.do(suite.bob, "POST", "/api/v1/users/"+suite.alice.ID+"/follow", nil)
	suite.Require().Equal(http.StatusOK, code, body)

	code, body = suite.do(suite.bob, "POST", "/api/v1/users/"+suite.alice.ID+"/follow", nil)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("ALREADY_DONE", body["code"])

	code, body = suite.do(suite.bob, "POST", "/api/v1/users/"+suite.bob.ID+"/follow", nil)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("INVALID_OPERATION", body["code"])

	suite.postTweet(suite.alice, "hello #golang")

	code, body = suite.do(suite.bob, "GET", "/api/v1/tweets/timeline", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.Len(body["tweets"], 1)

	code, body = suite.do(suite.bob, "GET", "/api/v1/tweets/hashtag/golang", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.Len(body["tweets"], 1)

	code, body = suite.do(suite.bob, "GET", "/api/v1/tweets/user/alice", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.Len(body["tweets"], 1)

	code, body = suite.do(suite.bob, "GET", "/api/v1/users/"+suite.alice.ID+"/followers", nil)
	suite.Require().Equal(http.StatusOK, code)
	users := body["users"].([]interface{})
	suite.Require().Len(users, 1)
	suite.Equal(suite.bob.ID, users[0].(map[string]interface{})["id"])

	code, body = suite.do(suite.bob, "GET", "/api/v1/users/"+suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.Equal(true, body["is_following"])
	suite.EqualValues(1, body["follower_count"])

	code, _ = suite.do(suite.bob, "POST", "/api/v1/users/"+suite.alice.ID+"/unfollow", nil)
	suite.Equal(http.StatusOK, code)
	code, body = suite.do(suite.bob, "GET", "/api/v1/users/"+suite.bob.ID+"/following", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.Empty(body["users"])
}

func (suite *HandlersTestSuite) TestNotificationsFlow() {
	id := suite.postTweet(suite.alice, "like this")
	suite.do(suite.bob, "POST", "/api/v1/tweets/"+id+"/like", nil)
	suite.do(suite.bob, "POST", "/api/v1/users/"+suite.alice.ID+"/follow", nil)

	code, body := suite.do(suite.alice, "GET", "/api/v1/notifications", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.EqualValues(2, body["unread_count"])
	items := body["notifications"].([]interface{})
	suite.Require().Len(items, 2)
	first := items[0].(map[string]interface{})["id"].(string)

	code, _ = suite.do(suite.alice, "PUT", "/api/v1/notifications/"+first+"/read", nil)
	suite.Equal(http.StatusOK, code)
	code, body = suite.do(suite.alice, "PUT", "/api/v1/notifications/read-all", nil)
	suite.Equal(http.StatusOK, code)
	suite.EqualValues(1, body["marked_read"])

	code, body = suite.do(suite.alice, "GET", "/api/v1/users/me", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.EqualValues(0, body["unread_notifications"])

	// bob cannot touch alice's notifications
	code, _ = suite.do(suite.bob, "DELETE", "/api/v1/notifications/"+first, nil)
	suite.Equal(http.StatusForbidden, code)

	code, _ = suite.do(suite.alice, "DELETE", "/api/v1/notifications/"+first, nil)
	suite.Equal(http.StatusOK, code)
	code, body = suite.do(suite.alice, "DELETE", "/api/v1/notifications", nil)
	suite.Equal(http.StatusOK, code)
	suite.EqualValues(1, body["deleted"])
}

func (suite *HandlersTestSuite) TestMessagesFlow() {
	code, body := suite.do(suite.alice, "POST", "/api/v1/messages", map[string]interface{}{})
	suite.Equal(http.StatusBadRequest, code)

	code, body = suite.do(suite.alice, "POST", "/api/v1/messages", map[string]interface{}{
		"recipient_id": suite.bob.ID, "content": "hi bob",
	})
	suite.Require().Equal(http.StatusCreated, code, body)
	msgID := body["id"].(string)
	suite.Len(suite.recorder.Of(realtime.EventMessageReceived), 1)

	code, body = suite.do(suite.bob, "GET", "/api/v1/messages/unread", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.EqualValues(1, body["unread_count"])

	code, body = suite.do(suite.bob, "GET", "/api/v1/messages/conversations", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.Len(body["conversations"], 1)

	code, body = suite.do(suite.bob, "GET", "/api/v1/messages/conversation/"+suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.Equal(models.ConversationID(suite.alice.ID, suite.bob.ID), body["conversation_id"])
	suite.EqualValues(1, body["marked_read"])

	code, body = suite.do(suite.bob, "GET", "/api/v1/messages/unread", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.EqualValues(0, body["unread_count"])

	code, _ = suite.do(suite.bob, "DELETE", "/api/v1/messages/"+msgID, nil)
	suite.Equal(http.StatusForbidden, code)
	code, _ = suite.do(suite.alice, "DELETE", "/api/v1/messages/"+msgID, nil)
	suite.Equal(http.StatusOK, code)
}

func (suite *HandlersTestSuite) TestOriginConnectionExcludedFromBroadcast() {
	req := httptest.NewRequest("POST", "/api/v1/tweets", strings.NewReader(`{"content":"from conn"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+suite.token(suite.alice))
	req.Header.Set(util.ConnectionIDHeader, "conn-42")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Require().Equal(http.StatusCreated, w.Code)

	created := suite.recorder.Of(realtime.EventTweetCreated)
	suite.Require().Len(created, 1)
	suite.Equal("conn-42", created[0].Exclude)
}

func (suite *HandlersTestSuite) TestHealthCheck() {
	code, body := suite.do(nil, "GET", "/health", nil)
	suite.Equal(http.StatusOK, code)
	suite.Equal("healthy", body["status"])
	checks := body["checks"].(map[string]interface{})
	suite.Equal("ok", checks["database"])
	suite.Equal("disabled", checks["redis"])
}

func (suite *HandlersTestSuite) TestPaginationQuery() {
	for i := 0; i < 3; i++ {
		suite.postTweet(suite.alice, fmt.Sprintf("tweet %d", i))
	}
	code, body := suite.do(suite.alice, "GET", "/api/v1/tweets/timeline?limit=2", nil)
	suite.Require().Equal(http.StatusOK, code)
	suite.Len(body["tweets"], 2)
	pagination := body["pagination"].(map[string]interface{})
	suite.EqualValues(3, pagination["total"])
	suite.Equal(true, pagination["has_more"])
}
