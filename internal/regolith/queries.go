package regolith

const sessionUserFields = `
  __typename
  sessionId
  userId
  state
  vehicleCode
  captainId
  isPilot
  createdAt
  updatedAt`

const crewShareFields = `
  __typename
  sessionId
  orderId
  payeeScName
  payeeUserId
  share
  shareType
  state
  note
  createdAt
  updatedAt`

const workOrderFields = `
  __typename
  sessionId
  orderId
  orderType
  ownerId
  sellerscName
  state
  note
  isSold
  createdAt
  updatedAt
  crewShares {` + crewShareFields + `
  }`

const scoutingFindFields = `
  __typename
  sessionId
  scoutingFindId
  clusterType
  clusterCount
  ownerId
  state
  note
  createdAt
  updatedAt`

const sessionQuery = `query getSession($sessionId: ID!) {
  session(sessionId: $sessionId) {
    __typename
    sessionId
    ownerId
    name
    note
    state
    activeMemberIds
    createdAt
    updatedAt
    finishedAt
    activeMembers {
      items {` + sessionUserFields + `
      }
      nextToken
    }
    workOrders {
      items {` + workOrderFields + `
      }
      nextToken
    }
    scouting {
      items {` + scoutingFindFields + `
      }
      nextToken
    }
  }
}`

type operation struct {
	name  string
	query string
}

// pageQueries follow nextToken for one paginated session collection each.
var pageQueries = map[string]operation{
	"activeMembers": {"getSessionActiveMembers", `query getSessionActiveMembers($sessionId: ID!, $nextToken: String) {
  session(sessionId: $sessionId) {
    activeMembers(nextToken: $nextToken) {
      items {` + sessionUserFields + `
      }
      nextToken
    }
  }
}`},
	"workOrders": {"getSessionWorkOrders", `query getSessionWorkOrders($sessionId: ID!, $nextToken: String) {
  session(sessionId: $sessionId) {
    workOrders(nextToken: $nextToken) {
      items {` + workOrderFields + `
      }
      nextToken
    }
  }
}`},
	"scouting": {"getSessionScouting", `query getSessionScouting($sessionId: ID!, $nextToken: String) {
  session(sessionId: $sessionId) {
    scouting(nextToken: $nextToken) {
      items {` + scoutingFindFields + `
      }
      nextToken
    }
  }
}`},
}

// The union members declare state with different enum types, so each one is
// aliased and the reconciler maps it back onto state.
const sessionUpdatesQuery = `query getSessionUpdates($sessionId: ID!, $lastCheck: String) {
  sessionUpdates(sessionId: $sessionId, lastCheck: $lastCheck) {
    eventDate
    sessionId
    eventName
    data {
      __typename
      ... on Session {
        sessionId
        name
        note
        sessionState: state
        activeMemberIds
        updatedAt
        finishedAt
      }
      ... on SessionUser {
        sessionId
        userId
        sessionUserState: state
        vehicleCode
        captainId
        isPilot
        updatedAt
      }
      ... on WorkOrderInterface {
        sessionId
        orderId
        orderType
        ownerId
        sellerscName
        workOrderState: state
        note
        isSold
        updatedAt
      }
      ... on CrewShare {
        sessionId
        orderId
        payeeScName
        payeeUserId
        share
        shareType
        crewShareState: state
        note
        updatedAt
      }
      ... on ScoutingFindInterface {
        sessionId
        scoutingFindId
        clusterType
        clusterCount
        ownerId
        scoutingFindState: state
        note
        updatedAt
      }
    }
  }
}`
