package templates

const defaultCandidateTemplate = `You are helping a group reach a consensus statement.

Question: {question}

Here are the participants' opinions, in the order given:
{participant_statements}

Write a single consensus statement that a broad cross-section of these
participants could agree with. Optionally think step by step inside
<thinking>...</thinking> first, then give the final statement inside
<statement>...</statement>.`

const defaultRankingTemplate = `Question: {question}

You are participant {participant_num}, who said:
"{participant_statement}"

Here are {num_candidates} candidate consensus statements, labeled 1 through {num_candidates}:
{candidate_statements}

Rank all {num_candidates} candidates from the one this participant would most
prefer to the one they would least prefer. Respond with only a JSON object of
the form {"ranking": [a, b, c, ...]} where each value is a 1-based candidate
label and every label from 1 to {num_candidates} appears exactly once.`
