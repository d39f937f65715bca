package graph

// Parameterized Cypher query library for the ATT&CK knowledge graph.
// Centralized as constants so the CTI store stays free of inline Cypher.

const QueryTechniquesByTactic = `
MATCH (t:Technique)-[:PART_OF]->(tac:Tactic {shortname: $tactic})
WHERE NOT t.is_subtechnique
RETURN t.name AS name, t.attack_id AS attack_id,
       t.description AS description, t.platforms AS platforms
ORDER BY t.attack_id
`

const QuerySubtechniquesForTechnique = `
MATCH (st:SubTechnique)-[:PART_OF]->(t:Technique {attack_id: $technique_id})
RETURN st.name AS name, st.attack_id AS attack_id,
       st.description AS description, st.platforms AS platforms
ORDER BY st.attack_id
`

const QueryIntrusionSetsForTechnique = `
MATCH (g:IntrusionSet)-[r:USES]->(t {attack_id: $technique_id})
WHERE t:Technique OR t:SubTechnique
RETURN g.name AS group_name, g.aliases AS aliases,
       r.description AS usage_description
ORDER BY g.name
`

const QueryToolsForTechnique = `
MATCH (s)-[r:USES]->(t {attack_id: $technique_id})
WHERE (s:Tool OR s:Malware) AND (t:Technique OR t:SubTechnique)
RETURN s.name AS name, labels(s)[0] AS type,
       s.description AS description,
       r.description AS usage_description
ORDER BY s.name
`

const QueryDetectionForTechnique = `
MATCH (t {attack_id: $technique_id})
WHERE t:Technique OR t:SubTechnique
OPTIONAL MATCH (t)-[:DETECTED_BY]->(ds:DataSource)
RETURN t.detection AS detection_text,
       collect(ds.name) AS data_sources
`

const QueryMitigationsForTechnique = `
MATCH (m:Mitigation)-[r:MITIGATES]->(t {attack_id: $technique_id})
WHERE t:Technique OR t:SubTechnique
RETURN m.name AS mitigation_name, m.description AS description,
       r.description AS how_it_mitigates
ORDER BY m.name
`

const QueryFullTechniqueContext = `
MATCH (t {attack_id: $technique_id})
WHERE t:Technique OR t:SubTechnique
OPTIONAL MATCH (t)-[:PART_OF]->(tac:Tactic)
OPTIONAL MATCH (g:IntrusionSet)-[:USES]->(t)
OPTIONAL MATCH (s)-[:USES]->(t) WHERE s:Tool OR s:Malware
OPTIONAL MATCH (t)-[:DETECTED_BY]->(ds:DataSource)
OPTIONAL MATCH (m:Mitigation)-[:MITIGATES]->(t)
OPTIONAL MATCH (c:Campaign)-[:CAMPAIGN_USES]->(t)
RETURN t.name AS name, t.attack_id AS attack_id,
       t.description AS description, t.platforms AS platforms,
       collect(DISTINCT tac.shortname) AS tactics,
       collect(DISTINCT g.name) AS groups,
       collect(DISTINCT s.name) AS tools,
       collect(DISTINCT ds.name) AS data_sources,
       collect(DISTINCT m.name) AS mitigations,
       t.detection AS detection_text,
       collect(DISTINCT {name: c.name, first_seen: c.first_seen,
                         last_seen: c.last_seen, external_id: c.external_id}) AS campaigns
`

const QueryCampaignsForTechnique = `
MATCH (c:Campaign)-[:CAMPAIGN_USES]->(t {attack_id: $technique_id})
WHERE t:Technique OR t:SubTechnique
OPTIONAL MATCH (c)-[:ATTRIBUTED_TO]->(g:IntrusionSet)
RETURN c.name AS campaign_name,
       c.external_id AS external_id,
       c.description AS description,
       c.first_seen AS first_seen,
       c.last_seen AS last_seen,
       collect(DISTINCT g.name) AS attributed_groups
ORDER BY c.first_seen DESC
`

const QueryCampaignsForGroup = `
MATCH (c:Campaign)-[:ATTRIBUTED_TO]->(g:IntrusionSet {name: $group_name})
OPTIONAL MATCH (c)-[:CAMPAIGN_USES]->(t)
WHERE t:Technique OR t:SubTechnique
RETURN c.name AS campaign_name,
       c.external_id AS external_id,
       c.description AS description,
       c.first_seen AS first_seen,
       c.last_seen AS last_seen,
       collect(DISTINCT t.attack_id) AS techniques_used
ORDER BY c.first_seen DESC
`

const QueryRandomTechniquesByTactic = `
MATCH (t:Technique)-[:PART_OF]->(tac:Tactic {shortname: $tactic})
WHERE NOT t.is_subtechnique
WITH t, rand() AS r
ORDER BY r
LIMIT $count
RETURN t.name AS name, t.attack_id AS attack_id,
       t.description AS description, t.platforms AS platforms
`

const QueryTechniquesForPlatform = `
MATCH (t:Technique)-[:PART_OF]->(tac:Tactic {shortname: $tactic})
WHERE $platform IN t.platforms AND NOT t.is_subtechnique
RETURN t.name AS name, t.attack_id AS attack_id,
       t.description AS description
ORDER BY t.attack_id
`
