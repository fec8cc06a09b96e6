package indexer

const marketsQuery = `
query Markets($gameId: String!, $locationId: String!, $first: Int!) {
  marketComponents(first: $first, where: { game_id: $gameId, location_id: $locationId }) {
    edges { node { drug_id cash quantity } }
  }
}`

const playerQuery = `
query Player($gameId: String!, $playerId: String!, $first: Int!) {
  playerComponents(where: { game_id: $gameId, player_id: $playerId }) {
    edges { node { name cash health turn status location_id bag_limit } }
  }
  drugComponents(first: $first, where: { game_id: $gameId, player_id: $playerId }) {
    edges { node { drug_id quantity } }
  }
}`
